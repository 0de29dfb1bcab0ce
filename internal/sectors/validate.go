package sectors

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfiguration marks configuration rejected at the write
// boundary: negative rates or prices, malformed enums, duplicate keys and
// references to unknown sectors or states.
var ErrInvalidConfiguration = errors.New("invalid configuration")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

// Validate checks every record of the snapshot and returns all problems
// joined together, or nil.
func (s Snapshot) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	sectors := make(map[string]bool, len(s.Sectors))
	for i, sec := range s.Sectors {
		if sec.Name == "" {
			add(invalidf("sectors[%d]: empty name", i))
			continue
		}
		if sectors[sec.Name] {
			add(invalidf("sector %q: duplicate", sec.Name))
		}
		sectors[sec.Name] = true
		if sec.BaseCapacity < 0 {
			add(invalidf("sector %q: negative base_capacity %d", sec.Name, sec.BaseCapacity))
		}
		for _, d := range sec.ProductDemands {
			if d.Product == "" {
				add(invalidf("sector %q: product demand without product", sec.Name))
			}
			add(checkAmount("sector "+sec.Name+" demand "+d.Product, "rate", d.Rate))
		}
	}

	units := make(map[UnitKey]bool, len(s.Units))
	for _, u := range s.Units {
		key := u.Key()
		add(checkKey(key, sectors, "unit"))
		if units[key] {
			add(invalidf("unit %s: duplicate", key))
		}
		units[key] = true
		add(checkAmount("unit "+key.String(), "base_revenue", u.BaseRevenue))
		add(checkAmount("unit "+key.String(), "base_cost", u.BaseCost))
		add(checkAmount("unit "+key.String(), "labor_cost", u.LaborCost))
		if u.OutputRate != nil {
			add(checkAmount("unit "+key.String(), "output_rate", *u.OutputRate))
		}
	}

	flows := make(map[UnitKey]bool, len(s.Flows))
	for _, f := range s.Flows {
		key := f.Key()
		add(checkKey(key, sectors, "flow"))
		if flows[key] {
			add(invalidf("flow %s: duplicate", key))
		}
		flows[key] = true
		for _, e := range f.Inputs {
			add(checkFlowEntry(key, "input", e))
		}
		for _, e := range f.Outputs {
			add(checkFlowEntry(key, "output", e))
		}
	}

	products := make(map[string]bool, len(s.Products))
	for i, p := range s.Products {
		if p.Name == "" {
			add(invalidf("products[%d]: empty name", i))
			continue
		}
		if products[p.Name] {
			add(invalidf("product %q: duplicate", p.Name))
		}
		products[p.Name] = true
		add(checkAmount("product "+p.Name, "reference_value", p.ReferenceValue))
		add(checkAmount("product "+p.Name, "min_price", p.MinPrice))
	}

	resources := make(map[string]bool, len(s.Resources))
	for i, r := range s.Resources {
		if r.Name == "" {
			add(invalidf("resources[%d]: empty name", i))
			continue
		}
		if resources[r.Name] {
			add(invalidf("resource %q: duplicate", r.Name))
		}
		resources[r.Name] = true
		add(checkAmount("resource "+r.Name, "base_price", r.BasePrice))
	}

	states := make(map[string]bool, len(s.States))
	for i, st := range s.States {
		if st.Name == "" {
			add(invalidf("states[%d]: empty name", i))
			continue
		}
		if states[st.Name] {
			add(invalidf("state %q: duplicate", st.Name))
		}
		states[st.Name] = true
		if !(st.CapacityMultiplier > 0) || math.IsInf(st.CapacityMultiplier, 0) {
			add(invalidf("state %q: capacity_multiplier must be positive, got %v", st.Name, st.CapacityMultiplier))
		}
		add(checkAmount("state "+st.Name, "growth_factor", st.GrowthFactor))
	}

	return errors.Join(errs...)
}

func checkKey(key UnitKey, sectors map[string]bool, what string) error {
	if !key.Unit.Valid() {
		return invalidf("%s %s: unknown unit type %q", what, key, string(key.Unit))
	}
	if !sectors[key.Sector] {
		return invalidf("%s %s: unknown sector %q", what, key, key.Sector)
	}
	return nil
}

func checkFlowEntry(key UnitKey, dir string, e FlowEntry) error {
	if e.Commodity == "" {
		return invalidf("flow %s: %s without commodity", key, dir)
	}
	if !e.Kind.Valid() {
		return invalidf("flow %s: %s %q has unknown kind %q", key, dir, e.Commodity, string(e.Kind))
	}
	return checkAmount(fmt.Sprintf("flow %s %s %s", key, dir, e.Commodity), "rate", e.Rate)
}

// checkAmount rejects negative, NaN and infinite values.
func checkAmount(owner, field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalidf("%s: %s is not a finite number", owner, field)
	}
	if v < 0 {
		return invalidf("%s: negative %s %v", owner, field, v)
	}
	return nil
}
