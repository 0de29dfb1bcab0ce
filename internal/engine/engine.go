// Package engine computes sector/unit economics: commodity pricing, flow
// resolution, per-unit revenue/cost/profit, sector capacity and price
// trends. Everything here is a pure function over immutable snapshots, so
// identical inputs give identical results at every call site.
package engine

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Egg3901/corpgame-sub003/internal/config"
	"github.com/Egg3901/corpgame-sub003/internal/sectors"
)

// ErrUnknownState is returned for a state absent from the snapshot.
var ErrUnknownState = errors.New("unknown state")

// Request asks for the economics of UnitCount units of one unit type in one
// state. Flow, when set, is a precomputed flow used verbatim.
type Request struct {
	Sector    string           `json:"sector"`
	Unit      sectors.UnitType `json:"unit"`
	State     string           `json:"state,omitempty"`
	UnitCount int              `json:"unit_count"`
	Flow      *ResolvedFlow    `json:"flow,omitempty"`
}

// Outcome pairs a batch request with its result or error.
type Outcome struct {
	Request Request         `json:"request"`
	Result  EconomicsResult `json:"result"`
	Err     error           `json:"-"`
}

// Engine binds a configuration snapshot, a price source and settings.
// It is safe for concurrent use.
type Engine struct {
	catalog  *sectors.Catalog
	prices   Pricer
	settings *config.Settings
	resolver *Resolver
	calc     *Calculator
}

// New creates an engine. A nil settings uses config.Default().
func New(catalog *sectors.Catalog, prices Pricer, settings *config.Settings) *Engine {
	if settings == nil {
		settings = config.Default()
	}
	return &Engine{
		catalog:  catalog,
		prices:   prices,
		settings: settings,
		resolver: NewResolver(catalog, settings),
		calc:     NewCalculator(settings),
	}
}

// Resolve returns the flow of a unit type; see Resolver.Resolve.
func (e *Engine) Resolve(sector string, unit sectors.UnitType, precomputed *ResolvedFlow) (ResolvedFlow, error) {
	return e.resolver.Resolve(sector, unit, precomputed)
}

// Evaluate resolves the unit's flow and computes its economics.
func (e *Engine) Evaluate(req Request) (EconomicsResult, error) {
	flow, err := e.resolver.Resolve(req.Sector, req.Unit, req.Flow)
	if err != nil {
		return EconomicsResult{}, err
	}
	growth, err := e.growthFactor(req.State)
	if err != nil {
		return EconomicsResult{}, err
	}
	sec, _ := e.catalog.Sector(req.Sector)
	ucfg, _ := e.catalog.Unit(req.Sector, req.Unit)

	return e.calc.Compute(Input{
		Unit:         req.Unit,
		Flow:         flow,
		Prices:       e.prices,
		Sector:       sec,
		UnitConfig:   ucfg,
		GrowthFactor: growth,
		UnitCount:    req.UnitCount,
	}), nil
}

// EvaluateAll evaluates requests concurrently and returns outcomes in request
// order. Per-request failures land in Outcome.Err; the returned error is
// only set when ctx is cancelled before all requests ran.
func (e *Engine) EvaluateAll(ctx context.Context, reqs []Request) ([]Outcome, error) {
	out := make([]Outcome, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.settings.BatchWorkers, 1))

	for i, req := range reqs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.Evaluate(req)
			out[i] = Outcome{Request: req, Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluate batch: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluate batch: %w", err)
	}
	return out, nil
}

// SectorRequests builds one request per enabled unit type of a sector, in
// unit type order, using counts for the unit counts.
func (e *Engine) SectorRequests(sector, state string, counts map[sectors.UnitType]int) []Request {
	var reqs []Request
	for _, u := range sectors.UnitTypes {
		if !e.catalog.UnitEnabled(sector, u) {
			continue
		}
		reqs = append(reqs, Request{Sector: sector, Unit: u, State: state, UnitCount: counts[u]})
	}
	return reqs
}

// Capacity reports the capacity status of a sector in a state given the
// current unit counts per unit type.
func (e *Engine) Capacity(sector, state string, counts map[sectors.UnitType]int) (CapacityReport, error) {
	sec, ok := e.catalog.Sector(sector)
	if !ok {
		return CapacityReport{}, fmt.Errorf("%w: %q", ErrUnknownSector, sector)
	}
	multiplier := 1.0
	if state != "" {
		st, ok := e.catalog.State(state)
		if !ok {
			return CapacityReport{}, fmt.Errorf("%w: %q", ErrUnknownState, state)
		}
		multiplier = st.CapacityMultiplier
	}

	base := sec.BaseCapacity
	if base == 0 {
		base = e.settings.DefaultBaseCapacity
	}
	capacity := Capacity(base, multiplier)
	units := SectorLoad(e.catalog, sector, counts)
	return CapacityReport{
		Sector:    sector,
		State:     state,
		Capacity:  capacity,
		Units:     units,
		Remaining: max(capacity-units, 0),
		Status:    CheckCapacityRatio(units, capacity, e.settings.NearCapacityRatio),
	}, nil
}

// Trend is TrailingChange with the configured window.
func (e *Engine) Trend(history []PricePoint) float64 {
	return TrailingChange(history, e.settings.TrendWindow)
}

func (e *Engine) growthFactor(state string) (float64, error) {
	if state == "" {
		return 1, nil
	}
	st, ok := e.catalog.State(state)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownState, state)
	}
	return st.GrowthFactor, nil
}
