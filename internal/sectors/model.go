// Package sectors holds the sector, unit, commodity and state configuration
// records consumed by the economic engine. Records are owned by the
// administration side; the engine only reads immutable snapshots of them.
package sectors

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnitType is the operational mode of a unit within a sector.
type UnitType string

const (
	UnitProduction UnitType = "production"
	UnitRetail     UnitType = "retail"
	UnitService    UnitType = "service"
	UnitExtraction UnitType = "extraction"
)

// UnitTypes lists every unit type in display order.
var UnitTypes = []UnitType{UnitProduction, UnitRetail, UnitService, UnitExtraction}

// Valid reports whether u is one of the four known unit types.
func (u UnitType) Valid() bool {
	switch u {
	case UnitProduction, UnitRetail, UnitService, UnitExtraction:
		return true
	}
	return false
}

// ParseUnitType accepts a unit type name case-insensitively.
func ParseUnitType(s string) (UnitType, error) {
	u := UnitType(strings.ToLower(strings.TrimSpace(s)))
	if !u.Valid() {
		return "", invalidf("unknown unit type %q", s)
	}
	return u, nil
}

// CommodityKind distinguishes raw resources from manufactured products.
type CommodityKind string

const (
	KindResource CommodityKind = "resource"
	KindProduct  CommodityKind = "product"
)

// Valid reports whether k is resource or product.
func (k CommodityKind) Valid() bool {
	return k == KindResource || k == KindProduct
}

// Demand is a product a sector's units consume per unit-hour.
type Demand struct {
	Product string  `yaml:"product" json:"product"`
	Rate    float64 `yaml:"rate" json:"rate"`
}

// SectorConfig describes one business sector.
type SectorConfig struct {
	Name            string   `yaml:"name" json:"name"`
	ProductionOnly  bool     `yaml:"production_only" json:"production_only"`
	CanExtract      bool     `yaml:"can_extract" json:"can_extract"`
	Enabled         bool     `yaml:"enabled" json:"enabled"`
	ProducedProduct string   `yaml:"produced_product,omitempty" json:"produced_product,omitempty"`
	PrimaryResource string   `yaml:"primary_resource,omitempty" json:"primary_resource,omitempty"`
	ProductDemands  []Demand `yaml:"product_demands,omitempty" json:"product_demands,omitempty"`
	BaseCapacity    int      `yaml:"base_capacity,omitempty" json:"base_capacity,omitempty"` // 0 = settings default
}

// UnmarshalYAML defaults Enabled to true when the key is absent.
func (s *SectorConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain SectorConfig
	p := plain{Enabled: true}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*s = SectorConfig(p)
	return nil
}

// SectorUnitConfig holds the economic parameters of one unit type in a sector.
type SectorUnitConfig struct {
	Sector      string   `yaml:"sector" json:"sector"`
	Unit        UnitType `yaml:"unit" json:"unit"`
	BaseRevenue float64  `yaml:"base_revenue" json:"base_revenue"`
	BaseCost    float64  `yaml:"base_cost" json:"base_cost"`
	LaborCost   float64  `yaml:"labor_cost" json:"labor_cost"`
	OutputRate  *float64 `yaml:"output_rate,omitempty" json:"output_rate,omitempty"`
	Enabled     bool     `yaml:"enabled" json:"enabled"`
}

// UnmarshalYAML defaults Enabled to true when the key is absent.
func (u *SectorUnitConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain SectorUnitConfig
	p := plain{Enabled: true}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*u = SectorUnitConfig(p)
	return nil
}

// Key returns the (sector, unit) key of the config.
func (u SectorUnitConfig) Key() UnitKey {
	return UnitKey{Sector: u.Sector, Unit: u.Unit}
}

// FlowEntry is a per-unit-hour consumption or production rate.
type FlowEntry struct {
	Commodity string        `yaml:"commodity" json:"commodity"`
	Kind      CommodityKind `yaml:"kind" json:"kind"`
	Rate      float64       `yaml:"rate" json:"rate"`
}

// UnitFlows is the explicitly configured input/output table of a unit type.
type UnitFlows struct {
	Sector  string      `yaml:"sector" json:"sector"`
	Unit    UnitType    `yaml:"unit" json:"unit"`
	Inputs  []FlowEntry `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Outputs []FlowEntry `yaml:"outputs,omitempty" json:"outputs,omitempty"`
}

// Key returns the (sector, unit) key of the flow table.
func (f UnitFlows) Key() UnitKey {
	return UnitKey{Sector: f.Sector, Unit: f.Unit}
}

// ProductConfig is the structural configuration of a product.
type ProductConfig struct {
	Name           string  `yaml:"name" json:"name"`
	ReferenceValue float64 `yaml:"reference_value" json:"reference_value"`
	MinPrice       float64 `yaml:"min_price" json:"min_price"`
}

// ResourceConfig is the structural configuration of a raw resource.
type ResourceConfig struct {
	Name      string  `yaml:"name" json:"name"`
	BasePrice float64 `yaml:"base_price" json:"base_price"`
}

// StateConfig carries the per-state modifiers used for capacity and growth.
type StateConfig struct {
	Name               string  `yaml:"name" json:"name"`
	CapacityMultiplier float64 `yaml:"capacity_multiplier" json:"capacity_multiplier"`
	GrowthFactor       float64 `yaml:"growth_factor" json:"growth_factor"`
}

// UnitKey identifies a unit type within a sector.
type UnitKey struct {
	Sector string
	Unit   UnitType
}

func (k UnitKey) String() string {
	return fmt.Sprintf("%s/%s", k.Sector, k.Unit)
}
