package main

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Egg3901/corpgame-sub003/internal/engine"
	"github.com/Egg3901/corpgame-sub003/internal/logger"
	"github.com/Egg3901/corpgame-sub003/internal/sectors"
)

type economicsOutput struct {
	engine.EconomicsResult
	Fingerprint     string                  `json:"fingerprint"`
	ProjectionHours int                     `json:"projection_hours,omitempty"`
	Projection      *engine.EconomicsResult `json:"projection,omitempty"`
}

func newEconomicsCmd(opts *options) *cobra.Command {
	var (
		state   string
		units   int
		hours   int
		project bool
	)
	cmd := &cobra.Command{
		Use:   "economics SECTOR UNIT",
		Short: "Hourly revenue, cost and profit of a unit type",
		Example: `  corpecon economics Mining extraction --units 3
  corpecon economics Defense retail --state Texas --project`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			unit, err := sectors.ParseUnitType(args[1])
			if err != nil {
				return err
			}
			eng, _, err := opts.loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			res, err := eng.Evaluate(engine.Request{Sector: args[0], Unit: unit, State: state, UnitCount: units})
			if err != nil {
				return err
			}
			if res.Incomplete {
				logger.Warn("ECON", "Some commodities could not be priced", zap.Strings("missing", res.MissingPrices))
			}

			out := economicsOutput{EconomicsResult: res, Fingerprint: engine.Fingerprint(res)}
			if project && hours == 0 {
				hours = opts.settings.ProjectionHours
			}
			if hours > 0 {
				p := engine.Project(res, hours)
				out.ProjectionHours = hours
				out.Projection = &p
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "State whose growth factor applies")
	cmd.Flags().IntVarP(&units, "units", "n", 1, "Number of units")
	cmd.Flags().IntVar(&hours, "hours", 0, "Also project the figures over this many hours")
	cmd.Flags().BoolVar(&project, "project", false, "Project over the configured projection_hours")
	return cmd
}

func newFlowCmd(opts *options) *cobra.Command {
	var units int
	cmd := &cobra.Command{
		Use:   "flow SECTOR UNIT",
		Short: "Resolved per-unit-hour inputs and outputs of a unit type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			unit, err := sectors.ParseUnitType(args[1])
			if err != nil {
				return err
			}
			eng, _, err := opts.loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			flow, err := eng.Resolve(args[0], unit, nil)
			if err != nil {
				return err
			}
			out := struct {
				Sector string              `json:"sector"`
				Unit   sectors.UnitType    `json:"unit"`
				Flow   engine.ResolvedFlow `json:"flow"`
				Units  int                 `json:"units"`
				Totals engine.ResolvedFlow `json:"totals"`
			}{args[0], unit, flow, units, flow.Totals(units)}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVarP(&units, "units", "n", 1, "Number of units for the totals")
	return cmd
}

func newCapacityCmd(opts *options) *cobra.Command {
	var (
		state string
		raw   map[string]int
	)
	cmd := &cobra.Command{
		Use:     "capacity SECTOR",
		Short:   "Capacity status of a sector in a state",
		Example: `  corpecon capacity Retail --state Texas --count retail=12 --count service=2`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := parseCounts(raw)
			if err != nil {
				return err
			}
			eng, _, err := opts.loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			report, err := eng.Capacity(args[0], state, counts)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "State whose capacity multiplier applies")
	cmd.Flags().StringToIntVar(&raw, "count", nil, "Current units per unit type (unit=n)")
	return cmd
}

type failure struct {
	Sector string           `json:"sector"`
	Unit   sectors.UnitType `json:"unit"`
	Error  string           `json:"error"`
}

func newPortfolioCmd(opts *options) *cobra.Command {
	var (
		state string
		raw   map[string]int
	)
	cmd := &cobra.Command{
		Use:   "portfolio SECTOR...",
		Short: "Economics of every enabled unit type across sectors, with totals",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := parseCounts(raw)
			if err != nil {
				return err
			}
			eng, _, err := opts.loadEngine(cmd.Context())
			if err != nil {
				return err
			}

			var reqs []engine.Request
			for _, sector := range args {
				reqs = append(reqs, eng.SectorRequests(sector, state, counts)...)
			}
			outcomes, err := eng.EvaluateAll(cmd.Context(), reqs)
			if err != nil {
				return err
			}

			out := struct {
				State    string                   `json:"state,omitempty"`
				Results  []engine.EconomicsResult `json:"results"`
				Failures []failure                `json:"failures,omitempty"`
				Summary  engine.Summary           `json:"summary"`
			}{State: state, Results: []engine.EconomicsResult{}}
			for _, o := range outcomes {
				if o.Err != nil {
					out.Failures = append(out.Failures, failure{o.Request.Sector, o.Request.Unit, o.Err.Error()})
					continue
				}
				out.Results = append(out.Results, o.Result)
			}
			out.Summary = engine.Aggregate(out.Results)
			logger.Info("ECON", "Portfolio evaluated", zap.Int("requests", len(reqs)), zap.Int("failures", len(out.Failures)))
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "State whose growth factor applies")
	cmd.Flags().StringToIntVar(&raw, "count", nil, "Units per unit type (unit=n)")
	return cmd
}

func newPriceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "price COMMODITY",
		Short: "Current price of a commodity and which source produced it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, book, err := opts.loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			p, err := book.Lookup(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), p)
		},
	}
}

func newTrendCmd(opts *options) *cobra.Command {
	var window, limit int
	cmd := &cobra.Command{
		Use:   "trend COMMODITY",
		Short: "Mean of the trailing percentage price changes of a commodity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.openDB()
			if err != nil {
				return err
			}
			defer d.Close()

			history, err := d.PriceHistory(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if window <= 0 {
				window = opts.settings.TrendWindow
			}
			out := struct {
				Commodity     string              `json:"commodity"`
				Window        int                 `json:"window"`
				Points        int                 `json:"points"`
				ChangePercent float64             `json:"change_percent"`
				History       []engine.PricePoint `json:"history,omitempty"`
			}{args[0], window, len(history), engine.TrailingChange(history, window), history}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVarP(&window, "window", "w", 0, "Number of trailing changes to average (default from settings)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Only read the most recent N observations (0 = all)")
	return cmd
}

func newRecordCmd(opts *options) *cobra.Command {
	var (
		at          string
		pruneBefore string
		scarcity    float64
	)
	cmd := &cobra.Command{
		Use:   "record COMMODITY PRICE",
		Short: "Record a price observation as history and as the latest live quote",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := strconv.ParseFloat(args[1], 64)
			if err != nil || price < 0 || math.IsInf(price, 0) || math.IsNaN(price) {
				return fmt.Errorf("invalid price %q", args[1])
			}
			when := time.Now()
			if at != "" {
				if when, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
			}
			var cutoff time.Time
			if pruneBefore != "" {
				if cutoff, err = time.Parse(time.RFC3339, pruneBefore); err != nil {
					return fmt.Errorf("invalid --prune-before: %w", err)
				}
			}

			d, err := opts.openDB()
			if err != nil {
				return err
			}
			defer d.Close()

			ctx := cmd.Context()
			if err := d.RecordPrice(ctx, args[0], engine.PricePoint{Price: price, RecordedAt: when}); err != nil {
				return err
			}
			q := engine.Quote{CurrentPrice: &price}
			if cmd.Flags().Changed("scarcity") {
				q.ScarcityFactor = &scarcity
			}
			if err := d.SaveQuote(ctx, args[0], q, when); err != nil {
				return err
			}
			logger.Success("DB", "Recorded price", zap.String("commodity", args[0]), zap.Float64("price", price))

			out := map[string]any{
				"commodity":   args[0],
				"price":       price,
				"recorded_at": when.UTC(),
			}
			if !cutoff.IsZero() {
				pruned, err := d.PruneHistory(ctx, cutoff)
				if err != nil {
					return err
				}
				out["pruned"] = pruned
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Observation time (RFC 3339, default now)")
	cmd.Flags().StringVar(&pruneBefore, "prune-before", "", "Also delete history older than this time (RFC 3339)")
	cmd.Flags().Float64Var(&scarcity, "scarcity", 1, "Scarcity factor to store with the quote")
	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Validate a YAML snapshot and store it in the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Section("Import snapshot")
			snap, err := sectors.LoadFile(args[0])
			if err != nil {
				return err
			}
			d, err := opts.openDB()
			if err != nil {
				return err
			}
			defer d.Close()
			if err := d.SaveSnapshot(cmd.Context(), snap); err != nil {
				return err
			}
			logger.Stats("sectors", len(snap.Sectors))
			logger.Stats("units", len(snap.Units))
			return writeJSON(cmd.OutOrStdout(), snapshotCounts(args[0], snap))
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a YAML snapshot and report every problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := sectors.LoadFile(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), snapshotCounts(args[0], snap))
		},
	}
}

type counts struct {
	File      string `json:"file"`
	Valid     bool   `json:"valid"`
	Sectors   int    `json:"sectors"`
	Units     int    `json:"units"`
	Flows     int    `json:"flows"`
	Products  int    `json:"products"`
	Resources int    `json:"resources"`
	States    int    `json:"states"`
}

func snapshotCounts(path string, snap sectors.Snapshot) counts {
	return counts{
		File:      path,
		Valid:     true,
		Sectors:   len(snap.Sectors),
		Units:     len(snap.Units),
		Flows:     len(snap.Flows),
		Products:  len(snap.Products),
		Resources: len(snap.Resources),
		States:    len(snap.States),
	}
}
