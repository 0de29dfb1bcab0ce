package engine

import (
	"math"
	"testing"

	"github.com/Egg3901/corpgame-sub003/internal/config"
	"github.com/Egg3901/corpgame-sub003/internal/sectors"
)

func ptr(v float64) *float64 { return &v }

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6*math.Max(1, math.Abs(b))
}

// testSnapshot is a small game world covering every unit type and the
// disabled/explicit/derived flow paths.
func testSnapshot() sectors.Snapshot {
	return sectors.Snapshot{
		Sectors: []sectors.SectorConfig{
			{Name: "Light Industry", Enabled: true, ProducedProduct: "Manufactured Goods", PrimaryResource: "Iron Ore"},
			{Name: "Mining", Enabled: true, CanExtract: true, PrimaryResource: "Oil"},
			{Name: "Quarry", Enabled: true, CanExtract: true, PrimaryResource: "Coal"},
			{Name: "Defense", Enabled: true, ProducedProduct: "Defense Equipment"},
			{Name: "Energy", Enabled: true, ProductionOnly: true, ProducedProduct: "Electricity"},
			{Name: "Steelworks", Enabled: true, ProducedProduct: "Steel", PrimaryResource: "Iron Ore",
				ProductDemands: []sectors.Demand{{Product: "Construction Materials", Rate: 0.25}}},
			{Name: "Retail", Enabled: true, BaseCapacity: 10,
				ProductDemands: []sectors.Demand{{Product: "Consumer Goods", Rate: 1.0}}},
			{Name: "Services", Enabled: true},
			{Name: "Workshop", Enabled: true},
			{Name: "Closed", Enabled: false},
		},
		Units: []sectors.SectorUnitConfig{
			{Sector: "Light Industry", Unit: sectors.UnitProduction, LaborCost: 120, OutputRate: ptr(1.0), Enabled: true},
			{Sector: "Light Industry", Unit: sectors.UnitRetail, BaseRevenue: 300, BaseCost: 100, Enabled: false},
			{Sector: "Mining", Unit: sectors.UnitExtraction, BaseCost: 50, OutputRate: ptr(2.0), Enabled: true},
			{Sector: "Quarry", Unit: sectors.UnitExtraction, BaseCost: 10, OutputRate: ptr(3.0), Enabled: true},
			{Sector: "Defense", Unit: sectors.UnitRetail, BaseRevenue: 100, BaseCost: 40, Enabled: true},
			{Sector: "Energy", Unit: sectors.UnitProduction, LaborCost: 10, OutputRate: ptr(2.0), Enabled: true},
			{Sector: "Steelworks", Unit: sectors.UnitProduction, LaborCost: 50, Enabled: true},
			{Sector: "Retail", Unit: sectors.UnitRetail, BaseRevenue: 500, BaseCost: 200, Enabled: true},
			{Sector: "Retail", Unit: sectors.UnitService, BaseRevenue: 80, BaseCost: 30, Enabled: false},
			{Sector: "Services", Unit: sectors.UnitService, BaseRevenue: 80, BaseCost: 30, Enabled: true},
			{Sector: "Workshop", Unit: sectors.UnitProduction, BaseRevenue: 400, BaseCost: 150, LaborCost: 99, Enabled: true},
			{Sector: "Closed", Unit: sectors.UnitProduction, BaseRevenue: 1, Enabled: true},
		},
		Flows: []sectors.UnitFlows{
			{
				Sector: "Light Industry", Unit: sectors.UnitProduction,
				Inputs: []sectors.FlowEntry{
					{Commodity: "Iron Ore", Kind: sectors.KindResource, Rate: 0.5},
					{Commodity: "Electricity", Kind: sectors.KindProduct, Rate: 0.5},
				},
			},
			{
				Sector: "Mining", Unit: sectors.UnitExtraction,
				Outputs: []sectors.FlowEntry{{Commodity: "Oil", Kind: sectors.KindResource, Rate: 2.0}},
			},
			{
				Sector: "Defense", Unit: sectors.UnitRetail,
				Inputs: []sectors.FlowEntry{{Commodity: "Defense Equipment", Kind: sectors.KindProduct, Rate: 0.2}},
			},
		},
		Products: []sectors.ProductConfig{
			{Name: "Manufactured Goods", ReferenceValue: 1500, MinPrice: 100},
			{Name: "Electricity", ReferenceValue: 200, MinPrice: 20},
			{Name: "Defense Equipment", ReferenceValue: 15000, MinPrice: 1500},
			{Name: "Consumer Goods", ReferenceValue: 900, MinPrice: 90},
		},
		Resources: []sectors.ResourceConfig{
			{Name: "Iron Ore", BasePrice: 100},
			{Name: "Oil", BasePrice: 50},
		},
		States: []sectors.StateConfig{
			{Name: "Texas", CapacityMultiplier: 1.5, GrowthFactor: 2},
			{Name: "Ohio", CapacityMultiplier: 0.5, GrowthFactor: 0.5},
		},
	}
}

func testFeed() MapFeed {
	return MapFeed{
		"Oil":                {CurrentPrice: ptr(80)},
		"Manufactured Goods": {CurrentPrice: ptr(1800)},
		"Electricity":        {CurrentPrice: ptr(200)},
		"Defense Equipment":  {CurrentPrice: ptr(15000)},
	}
}

func testCatalog(t *testing.T) *sectors.Catalog {
	t.Helper()
	cat, err := sectors.NewCatalog(testSnapshot())
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return cat
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	cat := testCatalog(t)
	return New(cat, NewPriceBook(cat, testFeed()), config.Default())
}

// fixedPrices is a Pricer over a plain table; missing names are unknown.
type fixedPrices map[string]float64

func (f fixedPrices) Price(name string, kind sectors.CommodityKind) (CommodityPrice, error) {
	p, ok := f[name]
	if !ok {
		return CommodityPrice{Name: name, Kind: kind, Source: SourceNone}, ErrUnknownCommodity
	}
	return CommodityPrice{Name: name, Kind: kind, CurrentPrice: p, BasePrice: p, ReferenceValue: p, ScarcityFactor: 1, Source: SourceConfig}, nil
}
