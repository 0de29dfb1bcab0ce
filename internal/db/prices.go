package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Egg3901/corpgame-sub003/internal/engine"
	"github.com/Egg3901/corpgame-sub003/internal/logger"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SaveQuote records a live market observation for a commodity. Only the
// fields set on q are stored; the others stay NULL.
func (d *DB) SaveQuote(ctx context.Context, commodity string, q engine.Quote, at time.Time) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO price_quotes (commodity, current_price, scarcity_factor, base_price, reference_value, recorded_at)
		 VALUES (?,?,?,?,?,?)`,
		commodity, nullable(q.CurrentPrice), nullable(q.ScarcityFactor), nullable(q.BasePrice), nullable(q.ReferenceValue),
		at.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert quote %q: %w", commodity, err)
	}
	return nil
}

// LatestQuotes returns the most recent quote per commodity as a price feed.
func (d *DB) LatestQuotes(ctx context.Context) (engine.MapFeed, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT q.commodity, q.current_price, q.scarcity_factor, q.base_price, q.reference_value
		FROM price_quotes q
		WHERE q.id = (
			SELECT id FROM price_quotes
			WHERE commodity = q.commodity
			ORDER BY recorded_at DESC, id DESC
			LIMIT 1
		)`)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	feed := make(engine.MapFeed)
	for rows.Next() {
		var name string
		var current, scarcity, base, ref sql.NullFloat64
		if err := rows.Scan(&name, &current, &scarcity, &base, &ref); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		feed[name] = engine.Quote{
			CurrentPrice:   fromNullable(current),
			ScarcityFactor: fromNullable(scarcity),
			BasePrice:      fromNullable(base),
			ReferenceValue: fromNullable(ref),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read quotes: %w", err)
	}
	logger.Debug("DB", "Loaded live quotes", zap.Int("commodities", len(feed)))
	return feed, nil
}

// RecordPrice appends one price observation to a commodity's history.
// Recording the same instant twice keeps the latest price.
func (d *DB) RecordPrice(ctx context.Context, commodity string, p engine.PricePoint) error {
	_, err := d.sql.ExecContext(ctx,
		"INSERT OR REPLACE INTO price_history (commodity, recorded_at, price) VALUES (?,?,?)",
		commodity, p.RecordedAt.UTC().Format(timeLayout), p.Price,
	)
	if err != nil {
		return fmt.Errorf("insert price %q: %w", commodity, err)
	}
	return nil
}

// PriceHistory returns up to limit of the most recent observations of a
// commodity, oldest first. A non-positive limit returns everything.
func (d *DB) PriceHistory(ctx context.Context, commodity string, limit int) ([]engine.PricePoint, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.sql.QueryContext(ctx, `
		SELECT recorded_at, price FROM (
			SELECT recorded_at, price FROM price_history
			WHERE commodity = ?
			ORDER BY recorded_at DESC
			LIMIT ?
		) ORDER BY recorded_at`,
		commodity, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history %q: %w", commodity, err)
	}
	defer rows.Close()

	var out []engine.PricePoint
	for rows.Next() {
		var ts string
		var p engine.PricePoint
		if err := rows.Scan(&ts, &p.Price); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		t, err := time.Parse(timeLayout, ts)
		if err != nil {
			logger.Warn("DB", "Skipping history row with bad timestamp", zap.String("commodity", commodity), zap.String("recorded_at", ts))
			continue
		}
		p.RecordedAt = t
		out = append(out, p)
	}
	return out, rows.Err()
}

// PruneHistory deletes observations older than cutoff and returns how many
// rows were removed.
func (d *DB) PruneHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := d.sql.ExecContext(ctx,
		"DELETE FROM price_history WHERE recorded_at < ?",
		cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logger.Info("DB", fmt.Sprintf("Pruned %d price history rows", n))
	}
	return n, nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
