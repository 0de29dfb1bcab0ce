package db

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/Egg3901/corpgame-sub003/internal/logger"
	"github.com/Egg3901/corpgame-sub003/internal/sectors"
)

// SaveSnapshot validates snap and replaces the stored configuration with it
// in one transaction. An invalid snapshot leaves the database untouched.
func (d *DB) SaveSnapshot(ctx context.Context, snap sectors.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"unit_flows", "flow_tables", "sector_units", "sector_demands", "sectors", "products", "resources", "states"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, s := range snap.Sectors {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sectors (name, position, production_only, can_extract, enabled, produced_product, primary_resource, base_capacity)
			 VALUES (?,?,?,?,?,?,?,?)`,
			s.Name, i, s.ProductionOnly, s.CanExtract, s.Enabled, s.ProducedProduct, s.PrimaryResource, s.BaseCapacity,
		); err != nil {
			return fmt.Errorf("insert sector %q: %w", s.Name, err)
		}
		for j, dm := range s.ProductDemands {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO sector_demands (sector, position, product, rate) VALUES (?,?,?,?)",
				s.Name, j, dm.Product, dm.Rate,
			); err != nil {
				return fmt.Errorf("insert demand %q/%q: %w", s.Name, dm.Product, err)
			}
		}
	}

	for i, u := range snap.Units {
		var rate sql.NullFloat64
		if u.OutputRate != nil {
			rate = sql.NullFloat64{Float64: *u.OutputRate, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sector_units (sector, unit, position, base_revenue, base_cost, labor_cost, output_rate, enabled)
			 VALUES (?,?,?,?,?,?,?,?)`,
			u.Sector, string(u.Unit), i, u.BaseRevenue, u.BaseCost, u.LaborCost, rate, u.Enabled,
		); err != nil {
			return fmt.Errorf("insert unit %s: %w", u.Key(), err)
		}
	}

	for i, f := range snap.Flows {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO flow_tables (sector, unit, position) VALUES (?,?,?)",
			f.Sector, string(f.Unit), i,
		); err != nil {
			return fmt.Errorf("insert flow table %s: %w", f.Key(), err)
		}
		if err := insertFlowSide(ctx, tx, f, "in", f.Inputs); err != nil {
			return err
		}
		if err := insertFlowSide(ctx, tx, f, "out", f.Outputs); err != nil {
			return err
		}
	}

	for i, p := range snap.Products {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO products (name, position, reference_value, min_price) VALUES (?,?,?,?)",
			p.Name, i, p.ReferenceValue, p.MinPrice,
		); err != nil {
			return fmt.Errorf("insert product %q: %w", p.Name, err)
		}
	}
	for i, r := range snap.Resources {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO resources (name, position, base_price) VALUES (?,?,?)",
			r.Name, i, r.BasePrice,
		); err != nil {
			return fmt.Errorf("insert resource %q: %w", r.Name, err)
		}
	}
	for i, s := range snap.States {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO states (name, position, capacity_multiplier, growth_factor) VALUES (?,?,?,?)",
			s.Name, i, s.CapacityMultiplier, s.GrowthFactor,
		); err != nil {
			return fmt.Errorf("insert state %q: %w", s.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logger.Success("DB", "Saved configuration snapshot",
		zap.Int("sectors", len(snap.Sectors)),
		zap.Int("units", len(snap.Units)),
		zap.Int("flows", len(snap.Flows)),
	)
	return nil
}

func insertFlowSide(ctx context.Context, tx *sql.Tx, f sectors.UnitFlows, dir string, entries []sectors.FlowEntry) error {
	for i, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO unit_flows (sector, unit, direction, position, commodity, kind, rate)
			 VALUES (?,?,?,?,?,?,?)`,
			f.Sector, string(f.Unit), dir, i, e.Commodity, string(e.Kind), e.Rate,
		); err != nil {
			return fmt.Errorf("insert flow %s %s[%d]: %w", f.Key(), dir, i, err)
		}
	}
	return nil
}

// LoadSnapshot reads the stored configuration in the order it was saved.
// The result is validated, so a hand-edited database with broken rows is
// reported as sectors.ErrInvalidConfiguration.
func (d *DB) LoadSnapshot(ctx context.Context) (sectors.Snapshot, error) {
	var snap sectors.Snapshot
	var err error

	if snap.Sectors, err = d.loadSectors(ctx); err != nil {
		return sectors.Snapshot{}, err
	}
	if snap.Units, err = d.loadUnits(ctx); err != nil {
		return sectors.Snapshot{}, err
	}
	if snap.Flows, err = d.loadFlows(ctx); err != nil {
		return sectors.Snapshot{}, err
	}
	if snap.Products, err = d.loadProducts(ctx); err != nil {
		return sectors.Snapshot{}, err
	}
	if snap.Resources, err = d.loadResources(ctx); err != nil {
		return sectors.Snapshot{}, err
	}
	if snap.States, err = d.loadStates(ctx); err != nil {
		return sectors.Snapshot{}, err
	}

	if err := snap.Validate(); err != nil {
		return sectors.Snapshot{}, err
	}
	logger.Info("DB", "Loaded configuration snapshot",
		zap.Int("sectors", len(snap.Sectors)),
		zap.Int("units", len(snap.Units)),
	)
	return snap, nil
}

func (d *DB) loadSectors(ctx context.Context) ([]sectors.SectorConfig, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT name, production_only, can_extract, enabled, produced_product, primary_resource, base_capacity
		 FROM sectors ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query sectors: %w", err)
	}
	var out []sectors.SectorConfig
	for rows.Next() {
		var s sectors.SectorConfig
		if err := rows.Scan(&s.Name, &s.ProductionOnly, &s.CanExtract, &s.Enabled, &s.ProducedProduct, &s.PrimaryResource, &s.BaseCapacity); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan sector: %w", err)
		}
		out = append(out, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read sectors: %w", err)
	}

	demands, err := d.loadDemands(ctx)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].ProductDemands = demands[out[i].Name]
	}
	return out, nil
}

func (d *DB) loadDemands(ctx context.Context) (map[string][]sectors.Demand, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT sector, product, rate FROM sector_demands ORDER BY sector, position")
	if err != nil {
		return nil, fmt.Errorf("query demands: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]sectors.Demand)
	for rows.Next() {
		var sector string
		var dm sectors.Demand
		if err := rows.Scan(&sector, &dm.Product, &dm.Rate); err != nil {
			return nil, fmt.Errorf("scan demand: %w", err)
		}
		out[sector] = append(out[sector], dm)
	}
	return out, rows.Err()
}

func (d *DB) loadUnits(ctx context.Context) ([]sectors.SectorUnitConfig, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT sector, unit, base_revenue, base_cost, labor_cost, output_rate, enabled
		 FROM sector_units ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	var out []sectors.SectorUnitConfig
	for rows.Next() {
		var u sectors.SectorUnitConfig
		var unit string
		var rate sql.NullFloat64
		if err := rows.Scan(&u.Sector, &unit, &u.BaseRevenue, &u.BaseCost, &u.LaborCost, &rate, &u.Enabled); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		u.Unit = sectors.UnitType(unit)
		if rate.Valid {
			v := rate.Float64
			u.OutputRate = &v
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (d *DB) loadFlows(ctx context.Context) ([]sectors.UnitFlows, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT sector, unit FROM flow_tables ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query flow tables: %w", err)
	}
	var out []sectors.UnitFlows
	index := make(map[sectors.UnitKey]int)
	for rows.Next() {
		var f sectors.UnitFlows
		var unit string
		if err := rows.Scan(&f.Sector, &unit); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan flow table: %w", err)
		}
		f.Unit = sectors.UnitType(unit)
		index[f.Key()] = len(out)
		out = append(out, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read flow tables: %w", err)
	}

	rows, err = d.sql.QueryContext(ctx,
		"SELECT sector, unit, direction, commodity, kind, rate FROM unit_flows ORDER BY sector, unit, direction, position")
	if err != nil {
		return nil, fmt.Errorf("query flows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sector, unit, dir, kind string
		var e sectors.FlowEntry
		if err := rows.Scan(&sector, &unit, &dir, &e.Commodity, &kind, &e.Rate); err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		e.Kind = sectors.CommodityKind(kind)

		i, ok := index[sectors.UnitKey{Sector: sector, Unit: sectors.UnitType(unit)}]
		if !ok {
			continue
		}
		if dir == "in" {
			out[i].Inputs = append(out[i].Inputs, e)
		} else {
			out[i].Outputs = append(out[i].Outputs, e)
		}
	}
	return out, rows.Err()
}

func (d *DB) loadProducts(ctx context.Context) ([]sectors.ProductConfig, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT name, reference_value, min_price FROM products ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []sectors.ProductConfig
	for rows.Next() {
		var p sectors.ProductConfig
		if err := rows.Scan(&p.Name, &p.ReferenceValue, &p.MinPrice); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) loadResources(ctx context.Context) ([]sectors.ResourceConfig, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT name, base_price FROM resources ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query resources: %w", err)
	}
	defer rows.Close()

	var out []sectors.ResourceConfig
	for rows.Next() {
		var r sectors.ResourceConfig
		if err := rows.Scan(&r.Name, &r.BasePrice); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) loadStates(ctx context.Context) ([]sectors.StateConfig, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT name, capacity_multiplier, growth_factor FROM states ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query states: %w", err)
	}
	defer rows.Close()

	var out []sectors.StateConfig
	for rows.Next() {
		var s sectors.StateConfig
		if err := rows.Scan(&s.Name, &s.CapacityMultiplier, &s.GrowthFactor); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
