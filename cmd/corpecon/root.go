package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Egg3901/corpgame-sub003/internal/config"
	"github.com/Egg3901/corpgame-sub003/internal/db"
	"github.com/Egg3901/corpgame-sub003/internal/engine"
	"github.com/Egg3901/corpgame-sub003/internal/logger"
	"github.com/Egg3901/corpgame-sub003/internal/sectors"
)

// errNeedsDatabase is returned by commands that only work against SQLite
// when a YAML snapshot was selected instead.
var errNeedsDatabase = errors.New("command requires the SQLite database (drop --snapshot)")

// options carries the persistent flags and everything derived from them.
type options struct {
	configPath   string
	snapshotPath string
	dbPath       string
	pricesPath   string
	verbose      bool

	settings *config.Settings
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "corpecon",
		Short: "Sector and unit economics for the corporate strategy game",
		Long: `corpecon prices commodities, resolves unit flows and computes hourly
revenue, cost and profit for every sector/unit combination.

Configuration comes from a YAML snapshot (--snapshot) or the SQLite
database (--db). Live quotes come from a YAML price file (--prices) or,
with the database, from the latest recorded quotes.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			if opts.verbose {
				s.Logging.Level = "debug"
			}
			if opts.dbPath == "" {
				opts.dbPath = s.Database.Path
			}
			opts.settings = s
			if err := logger.Init(s.Logging.Level, s.Logging.Development); err != nil {
				return err
			}
			logger.Banner(version)
			logger.Debug("CLI", "Settings loaded", zap.String("command", cmd.Name()))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "corpecon.yaml", "Settings file (missing file uses defaults)")
	root.PersistentFlags().StringVarP(&opts.snapshotPath, "snapshot", "s", "", "YAML configuration snapshot (instead of the database)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (default from settings)")
	root.PersistentFlags().StringVarP(&opts.pricesPath, "prices", "p", "", "YAML file of live price quotes")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newEconomicsCmd(opts),
		newFlowCmd(opts),
		newCapacityCmd(opts),
		newPortfolioCmd(opts),
		newPriceCmd(opts),
		newTrendCmd(opts),
		newRecordCmd(opts),
		newImportCmd(opts),
		newValidateCmd(),
	)
	return root
}

// openDB opens the configured SQLite database.
func (o *options) openDB() (*db.DB, error) {
	if o.snapshotPath != "" {
		return nil, errNeedsDatabase
	}
	return db.Open(o.dbPath)
}

// loadEngine builds an engine from the selected snapshot and price source.
func (o *options) loadEngine(ctx context.Context) (*engine.Engine, *engine.PriceBook, error) {
	var snap sectors.Snapshot
	var feed engine.PriceFeed

	if o.snapshotPath != "" {
		s, err := sectors.LoadFile(o.snapshotPath)
		if err != nil {
			return nil, nil, err
		}
		snap = s
	} else {
		d, err := db.Open(o.dbPath)
		if err != nil {
			return nil, nil, err
		}
		defer d.Close()
		if snap, err = d.LoadSnapshot(ctx); err != nil {
			return nil, nil, err
		}
		quotes, err := d.LatestQuotes(ctx)
		if err != nil {
			return nil, nil, err
		}
		feed = quotes
	}

	if o.pricesPath != "" {
		f, err := engine.LoadFeedFile(o.pricesPath)
		if err != nil {
			return nil, nil, err
		}
		feed = f
	}

	cat, err := sectors.NewCatalog(snap)
	if err != nil {
		return nil, nil, err
	}
	book := engine.NewPriceBook(cat, feed)
	return engine.New(cat, book, o.settings), book, nil
}

// parseCounts turns --count unit=n pairs into typed unit counts.
func parseCounts(raw map[string]int) (map[sectors.UnitType]int, error) {
	counts := make(map[sectors.UnitType]int, len(raw))
	for name, n := range raw {
		u, err := sectors.ParseUnitType(name)
		if err != nil {
			return nil, err
		}
		counts[u] += n
	}
	return counts, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
