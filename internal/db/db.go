// Package db stores configuration snapshots, live price quotes and price
// history in SQLite.
package db

import (
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Egg3901/corpgame-sub003/internal/logger"
)

// DB wraps a SQLite database connection.
type DB struct {
	sql *sql.DB
}

// Open opens (or creates) the SQLite database at path and runs migrations.
// ":memory:" opens a private in-memory database.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if isMemory(path) {
		// Every pooled connection would otherwise see its own empty database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path), zap.Int("schema_version", d.SchemaVersion()))
	return d, nil
}

func dsn(path string) string {
	if isMemory(path) {
		return ":memory:?_pragma=foreign_keys(1)"
	}
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func isMemory(path string) bool {
	return path == "" || strings.HasPrefix(path, ":memory:")
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// SchemaVersion returns the highest applied migration.
func (d *DB) SchemaVersion() int {
	version := 0
	d.sql.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	return version
}

func (d *DB) migrate() error {
	version := 0
	// Missing table on a fresh database leaves version at 0.
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS sectors (
				name             TEXT PRIMARY KEY,
				position         INTEGER NOT NULL,
				production_only  INTEGER NOT NULL DEFAULT 0,
				can_extract      INTEGER NOT NULL DEFAULT 0,
				enabled          INTEGER NOT NULL DEFAULT 1,
				produced_product TEXT NOT NULL DEFAULT '',
				primary_resource TEXT NOT NULL DEFAULT '',
				base_capacity    INTEGER NOT NULL DEFAULT 0
			);

			CREATE TABLE IF NOT EXISTS sector_demands (
				sector   TEXT NOT NULL REFERENCES sectors(name) ON DELETE CASCADE,
				position INTEGER NOT NULL,
				product  TEXT NOT NULL,
				rate     REAL NOT NULL,
				PRIMARY KEY (sector, position)
			);

			CREATE TABLE IF NOT EXISTS sector_units (
				sector       TEXT NOT NULL REFERENCES sectors(name) ON DELETE CASCADE,
				unit         TEXT NOT NULL,
				position     INTEGER NOT NULL,
				base_revenue REAL NOT NULL DEFAULT 0,
				base_cost    REAL NOT NULL DEFAULT 0,
				labor_cost   REAL NOT NULL DEFAULT 0,
				output_rate  REAL,
				enabled      INTEGER NOT NULL DEFAULT 1,
				PRIMARY KEY (sector, unit)
			);

			CREATE TABLE IF NOT EXISTS flow_tables (
				sector   TEXT NOT NULL REFERENCES sectors(name) ON DELETE CASCADE,
				unit     TEXT NOT NULL,
				position INTEGER NOT NULL,
				PRIMARY KEY (sector, unit)
			);

			CREATE TABLE IF NOT EXISTS unit_flows (
				sector    TEXT NOT NULL,
				unit      TEXT NOT NULL,
				direction TEXT NOT NULL CHECK (direction IN ('in', 'out')),
				position  INTEGER NOT NULL,
				commodity TEXT NOT NULL,
				kind      TEXT NOT NULL,
				rate      REAL NOT NULL,
				PRIMARY KEY (sector, unit, direction, position),
				FOREIGN KEY (sector, unit) REFERENCES flow_tables(sector, unit) ON DELETE CASCADE
			);

			CREATE TABLE IF NOT EXISTS products (
				name            TEXT PRIMARY KEY,
				position        INTEGER NOT NULL,
				reference_value REAL NOT NULL,
				min_price       REAL NOT NULL
			);

			CREATE TABLE IF NOT EXISTS resources (
				name       TEXT PRIMARY KEY,
				position   INTEGER NOT NULL,
				base_price REAL NOT NULL
			);

			CREATE TABLE IF NOT EXISTS states (
				name                TEXT PRIMARY KEY,
				position            INTEGER NOT NULL,
				capacity_multiplier REAL NOT NULL,
				growth_factor       REAL NOT NULL
			);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1")
	}

	if version < 2 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS price_quotes (
				id              INTEGER PRIMARY KEY AUTOINCREMENT,
				commodity       TEXT NOT NULL,
				current_price   REAL,
				scarcity_factor REAL,
				base_price      REAL,
				reference_value REAL,
				recorded_at     TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_price_quotes_commodity ON price_quotes(commodity, recorded_at);

			CREATE TABLE IF NOT EXISTS price_history (
				commodity   TEXT NOT NULL,
				recorded_at TEXT NOT NULL,
				price       REAL NOT NULL,
				PRIMARY KEY (commodity, recorded_at)
			);

			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`)
		if err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
		logger.Info("DB", "Applied migration v2 (price quotes and history)")
	}

	return nil
}
