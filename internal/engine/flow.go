package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Egg3901/corpgame-sub003/internal/config"
	"github.com/Egg3901/corpgame-sub003/internal/sectors"
)

var (
	ErrUnknownSector = errors.New("unknown sector")
	// ErrUnitDisabled covers a disabled sector, a disabled unit type and a
	// unit type with no configuration row. Such units never reach the
	// calculator.
	ErrUnitDisabled = errors.New("unit type disabled")
)

// FlowSide is one direction (inputs or outputs) of a resolved flow.
type FlowSide struct {
	Resources []sectors.FlowEntry `json:"resources"`
	Products  []sectors.FlowEntry `json:"products"`
}

// Len returns the number of entries on this side.
func (s FlowSide) Len() int {
	return len(s.Resources) + len(s.Products)
}

// ResolvedFlow is the normalized per-unit-hour flow of one unit type.
type ResolvedFlow struct {
	Inputs  FlowSide `json:"inputs"`
	Outputs FlowSide `json:"outputs"`
}

// NewFlow splits raw input/output entries by kind, merging duplicates.
func NewFlow(inputs, outputs []sectors.FlowEntry) ResolvedFlow {
	var f ResolvedFlow
	for _, e := range inputs {
		if e.Kind == sectors.KindResource {
			f.Inputs.Resources = append(f.Inputs.Resources, e)
		} else {
			f.Inputs.Products = append(f.Inputs.Products, e)
		}
	}
	for _, e := range outputs {
		if e.Kind == sectors.KindResource {
			f.Outputs.Resources = append(f.Outputs.Resources, e)
		} else {
			f.Outputs.Products = append(f.Outputs.Products, e)
		}
	}
	return f.normalize()
}

// Clone returns a deep copy with empty (non-nil) slices.
func (f ResolvedFlow) Clone() ResolvedFlow {
	return ResolvedFlow{
		Inputs: FlowSide{
			Resources: cloneEntries(f.Inputs.Resources),
			Products:  cloneEntries(f.Inputs.Products),
		},
		Outputs: FlowSide{
			Resources: cloneEntries(f.Outputs.Resources),
			Products:  cloneEntries(f.Outputs.Products),
		},
	}
}

// Empty reports whether the flow has no entries at all.
func (f ResolvedFlow) Empty() bool {
	return f.Inputs.Len() == 0 && f.Outputs.Len() == 0
}

// Totals returns the flow scaled to unitCount units (rate x count).
func (f ResolvedFlow) Totals(unitCount int) ResolvedFlow {
	n := float64(max(unitCount, 0))
	out := f.Clone()
	for _, side := range [][]sectors.FlowEntry{
		out.Inputs.Resources, out.Inputs.Products,
		out.Outputs.Resources, out.Outputs.Products,
	} {
		for i := range side {
			side[i].Rate *= n
		}
	}
	return out
}

// Input returns the input entry for a commodity, if present.
func (f ResolvedFlow) Input(name string) (sectors.FlowEntry, bool) {
	return findEntry(name, f.Inputs.Resources, f.Inputs.Products)
}

// Output returns the output entry for a commodity, if present.
func (f ResolvedFlow) Output(name string) (sectors.FlowEntry, bool) {
	return findEntry(name, f.Outputs.Resources, f.Outputs.Products)
}

func findEntry(name string, sides ...[]sectors.FlowEntry) (sectors.FlowEntry, bool) {
	for _, side := range sides {
		for _, e := range side {
			if e.Commodity == name {
				return e, true
			}
		}
	}
	return sectors.FlowEntry{}, false
}

func (f ResolvedFlow) normalize() ResolvedFlow {
	return ResolvedFlow{
		Inputs: FlowSide{
			Resources: mergeEntries(f.Inputs.Resources),
			Products:  mergeEntries(f.Inputs.Products),
		},
		Outputs: FlowSide{
			Resources: mergeEntries(f.Outputs.Resources),
			Products:  mergeEntries(f.Outputs.Products),
		},
	}
}

func cloneEntries(in []sectors.FlowEntry) []sectors.FlowEntry {
	if len(in) == 0 {
		return []sectors.FlowEntry{}
	}
	return slices.Clone(in)
}

// mergeEntries sums the rates of repeated commodities, keeping the position
// of the first occurrence.
func mergeEntries(in []sectors.FlowEntry) []sectors.FlowEntry {
	out := make([]sectors.FlowEntry, 0, len(in))
	pos := make(map[string]int, len(in))
	for _, e := range in {
		if i, ok := pos[e.Commodity]; ok {
			out[i].Rate += e.Rate
			continue
		}
		pos[e.Commodity] = len(out)
		out = append(out, e)
	}
	return out
}

// Resolver expands a unit type's configuration into a ResolvedFlow.
type Resolver struct {
	catalog  *sectors.Catalog
	settings *config.Settings
}

// NewResolver creates a resolver. A nil settings uses config.Default().
func NewResolver(catalog *sectors.Catalog, settings *config.Settings) *Resolver {
	if settings == nil {
		settings = config.Default()
	}
	return &Resolver{catalog: catalog, settings: settings}
}

// Resolve returns the flow of a unit type. Precedence: a precomputed flow
// supplied by the caller, then the configured flow table, then defaults
// derived from the sector configuration. Disabled units are rejected here.
func (r *Resolver) Resolve(sector string, unit sectors.UnitType, precomputed *ResolvedFlow) (ResolvedFlow, error) {
	sec, ok := r.catalog.Sector(sector)
	if !ok {
		return ResolvedFlow{}, fmt.Errorf("%w: %q", ErrUnknownSector, sector)
	}
	if !r.catalog.UnitEnabled(sector, unit) {
		return ResolvedFlow{}, fmt.Errorf("%w: %s/%s", ErrUnitDisabled, sector, unit)
	}
	if precomputed != nil {
		return precomputed.Clone(), nil
	}
	if f, ok := r.catalog.Flows(sector, unit); ok {
		return NewFlow(f.Inputs, f.Outputs), nil
	}

	ucfg, _ := r.catalog.Unit(sector, unit)
	return r.derive(sec, unit, ucfg), nil
}

func (r *Resolver) derive(sec sectors.SectorConfig, unit sectors.UnitType, ucfg sectors.SectorUnitConfig) ResolvedFlow {
	var inputs, outputs []sectors.FlowEntry
	demands := func() {
		for _, d := range sec.ProductDemands {
			inputs = append(inputs, sectors.FlowEntry{Commodity: d.Product, Kind: sectors.KindProduct, Rate: d.Rate})
		}
	}

	switch unit {
	case sectors.UnitProduction:
		if sec.PrimaryResource != "" {
			inputs = append(inputs, sectors.FlowEntry{
				Commodity: sec.PrimaryResource,
				Kind:      sectors.KindResource,
				Rate:      r.settings.ResourceConsumptionRate,
			})
		}
		inputs = append(inputs, sectors.FlowEntry{
			Commodity: r.settings.ElectricityProduct,
			Kind:      sectors.KindProduct,
			Rate:      r.settings.ElectricityConsumptionRate,
		})
		demands()
		if sec.ProducedProduct != "" {
			outputs = append(outputs, sectors.FlowEntry{
				Commodity: sec.ProducedProduct,
				Kind:      sectors.KindProduct,
				Rate:      r.outputRate(ucfg),
			})
		}
	case sectors.UnitRetail, sectors.UnitService:
		demands()
	case sectors.UnitExtraction:
		demands()
		if sec.CanExtract && sec.PrimaryResource != "" {
			outputs = append(outputs, sectors.FlowEntry{
				Commodity: sec.PrimaryResource,
				Kind:      sectors.KindResource,
				Rate:      r.outputRate(ucfg),
			})
		}
	}
	return NewFlow(inputs, outputs)
}

func (r *Resolver) outputRate(ucfg sectors.SectorUnitConfig) float64 {
	if ucfg.OutputRate != nil {
		return *ucfg.OutputRate
	}
	return r.settings.DefaultOutputRate
}
