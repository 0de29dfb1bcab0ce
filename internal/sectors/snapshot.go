package sectors

import (
	"slices"
)

// Snapshot is a complete configuration set as delivered by the
// administration side for one computation cycle.
type Snapshot struct {
	Sectors   []SectorConfig     `yaml:"sectors" json:"sectors"`
	Units     []SectorUnitConfig `yaml:"units" json:"units"`
	Flows     []UnitFlows        `yaml:"flows,omitempty" json:"flows,omitempty"`
	Products  []ProductConfig    `yaml:"products" json:"products"`
	Resources []ResourceConfig   `yaml:"resources" json:"resources"`
	States    []StateConfig      `yaml:"states,omitempty" json:"states,omitempty"`
}

// Catalog is a validated, indexed, read-only view of a Snapshot.
// It is safe for concurrent use; nothing mutates it after NewCatalog returns.
type Catalog struct {
	sectors     map[string]SectorConfig
	sectorNames []string
	units       map[UnitKey]SectorUnitConfig
	flows       map[UnitKey]UnitFlows
	products    map[string]ProductConfig
	resources   map[string]ResourceConfig
	states      map[string]StateConfig
}

// NewCatalog validates snap and indexes a private copy of it.
func NewCatalog(snap Snapshot) (*Catalog, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	c := &Catalog{
		sectors:   make(map[string]SectorConfig, len(snap.Sectors)),
		units:     make(map[UnitKey]SectorUnitConfig, len(snap.Units)),
		flows:     make(map[UnitKey]UnitFlows, len(snap.Flows)),
		products:  make(map[string]ProductConfig, len(snap.Products)),
		resources: make(map[string]ResourceConfig, len(snap.Resources)),
		states:    make(map[string]StateConfig, len(snap.States)),
	}
	for _, s := range snap.Sectors {
		s.ProductDemands = slices.Clone(s.ProductDemands)
		c.sectors[s.Name] = s
		c.sectorNames = append(c.sectorNames, s.Name)
	}
	slices.Sort(c.sectorNames)
	for _, u := range snap.Units {
		if u.OutputRate != nil {
			rate := *u.OutputRate
			u.OutputRate = &rate
		}
		c.units[u.Key()] = u
	}
	for _, f := range snap.Flows {
		f.Inputs = slices.Clone(f.Inputs)
		f.Outputs = slices.Clone(f.Outputs)
		c.flows[f.Key()] = f
	}
	for _, p := range snap.Products {
		c.products[p.Name] = p
	}
	for _, r := range snap.Resources {
		c.resources[r.Name] = r
	}
	for _, st := range snap.States {
		c.states[st.Name] = st
	}
	return c, nil
}

// SectorNames returns all sector names in lexical order.
func (c *Catalog) SectorNames() []string {
	return slices.Clone(c.sectorNames)
}

// Sector returns a copy of the named sector's configuration.
func (c *Catalog) Sector(name string) (SectorConfig, bool) {
	s, ok := c.sectors[name]
	if ok {
		s.ProductDemands = slices.Clone(s.ProductDemands)
	}
	return s, ok
}

// Unit returns a copy of the unit row for sector and unit type, enabled or not.
func (c *Catalog) Unit(sector string, unit UnitType) (SectorUnitConfig, bool) {
	u, ok := c.units[UnitKey{Sector: sector, Unit: unit}]
	if ok && u.OutputRate != nil {
		rate := *u.OutputRate
		u.OutputRate = &rate
	}
	return u, ok
}

// Flows returns the explicitly configured flow table for a unit type, if any.
func (c *Catalog) Flows(sector string, unit UnitType) (UnitFlows, bool) {
	f, ok := c.flows[UnitKey{Sector: sector, Unit: unit}]
	if ok {
		f.Inputs = slices.Clone(f.Inputs)
		f.Outputs = slices.Clone(f.Outputs)
	}
	return f, ok
}

// Product looks up a configured product by name.
func (c *Catalog) Product(name string) (ProductConfig, bool) {
	p, ok := c.products[name]
	return p, ok
}

// Resource looks up a configured resource by name.
func (c *Catalog) Resource(name string) (ResourceConfig, bool) {
	r, ok := c.resources[name]
	return r, ok
}

// State looks up a state by name.
func (c *Catalog) State(name string) (StateConfig, bool) {
	s, ok := c.states[name]
	return s, ok
}

// UnitEnabled reports whether both the sector and the unit type are enabled.
// A unit type without a SectorUnitConfig row counts as disabled, and a
// production-only sector only runs production units.
func (c *Catalog) UnitEnabled(sector string, unit UnitType) bool {
	s, ok := c.sectors[sector]
	if !ok || !s.Enabled {
		return false
	}
	if s.ProductionOnly && unit != UnitProduction {
		return false
	}
	u, ok := c.units[UnitKey{Sector: sector, Unit: unit}]
	return ok && u.Enabled
}
