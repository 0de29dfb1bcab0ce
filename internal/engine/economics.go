package engine

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"lukechampine.com/blake3"

	"github.com/Egg3901/corpgame-sub003/internal/config"
	"github.com/Egg3901/corpgame-sub003/internal/sectors"
)

// CostLine is one row of the audit breakdown of a unit's hourly cost.
type CostLine struct {
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`   // units consumed per hour (x unit count)
	UnitPrice   float64 `json:"unit_price"` // effective price after discounts/multipliers
	CostPerHour float64 `json:"cost_per_hour"`
}

// EconomicsResult is the hourly economics of unitCount units of one type.
type EconomicsResult struct {
	Sector         string           `json:"sector"`
	Unit           sectors.UnitType `json:"unit"`
	UnitCount      int              `json:"unit_count"`
	RevenuePerHour float64          `json:"revenue_per_hour"`
	CostPerHour    float64          `json:"cost_per_hour"`
	ProfitPerHour  float64          `json:"profit_per_hour"`
	CostBreakdown  []CostLine       `json:"cost_breakdown"`

	// Incomplete is set when a commodity could not be priced and was
	// counted at 0; MissingPrices names them in first-seen order.
	Incomplete    bool     `json:"incomplete"`
	MissingPrices []string `json:"missing_prices,omitempty"`
}

// Input is everything the calculator needs for one unit type. The
// calculator never mutates it.
type Input struct {
	Unit         sectors.UnitType
	Flow         ResolvedFlow
	Prices       Pricer
	Sector       sectors.SectorConfig
	UnitConfig   sectors.SectorUnitConfig
	GrowthFactor float64 // state growth factor; retail/service cost divisor, floored at 1
	UnitCount    int
}

// Calculator applies the sector pricing policy to resolved flows.
type Calculator struct {
	settings *config.Settings
}

// NewCalculator creates a calculator. A nil settings uses config.Default().
func NewCalculator(settings *config.Settings) *Calculator {
	if settings == nil {
		settings = config.Default()
	}
	return &Calculator{settings: settings}
}

// pricing collects prices for one computation and remembers misses.
type pricing struct {
	prices  Pricer
	missing []string
}

func (p *pricing) get(name string, kind sectors.CommodityKind) CommodityPrice {
	if p.prices == nil {
		p.miss(name)
		return CommodityPrice{Name: name, Kind: kind, Source: SourceNone}
	}
	cp, err := p.prices.Price(name, kind)
	if err != nil {
		p.miss(name)
		return CommodityPrice{Name: name, Kind: kind, Source: SourceNone}
	}
	return cp
}

func (p *pricing) current(name string, kind sectors.CommodityKind) float64 {
	return p.get(name, kind).CurrentPrice
}

func (p *pricing) miss(name string) {
	if !slices.Contains(p.missing, name) {
		p.missing = append(p.missing, name)
	}
}

// Compute returns the economics of in.UnitCount units of in.Unit.
// Per-unit figures are computed first, then scaled by the unit count.
func (c *Calculator) Compute(in Input) EconomicsResult {
	pr := &pricing{prices: in.Prices}

	var revenue float64
	var lines []CostLine
	switch in.Unit {
	case sectors.UnitRetail, sectors.UnitService:
		revenue, lines = c.retail(in, pr)
	case sectors.UnitProduction:
		revenue, lines = c.production(in, pr)
	case sectors.UnitExtraction:
		revenue, lines = c.extraction(in, pr)
	default:
		revenue = in.UnitConfig.BaseRevenue
		lines = []CostLine{baseCostLine(in.UnitConfig.BaseCost)}
	}

	n := float64(max(in.UnitCount, 0))
	res := EconomicsResult{
		Sector:         in.Sector.Name,
		Unit:           in.Unit,
		UnitCount:      max(in.UnitCount, 0),
		RevenuePerHour: revenue * n,
		CostBreakdown:  make([]CostLine, 0, len(lines)),
	}
	for _, l := range lines {
		l.Quantity *= n
		l.CostPerHour *= n
		res.CostPerHour += l.CostPerHour
		res.CostBreakdown = append(res.CostBreakdown, l)
	}
	res.ProfitPerHour = res.RevenuePerHour - res.CostPerHour
	if len(pr.missing) > 0 {
		res.Incomplete = true
		res.MissingPrices = pr.missing
	}
	return res
}

// retail covers retail and service units: they buy product (and resource)
// inputs and sell the products on. The sector wholesale discount applies to
// every non-Electricity product input on both the cost and revenue side;
// Electricity counts at full price on both.
func (c *Calculator) retail(in Input, pr *pricing) (float64, []CostLine) {
	discount := c.settings.WholesaleDiscount(in.Sector.Name)
	growth := math.Max(1, in.GrowthFactor)

	var lines []CostLine
	for _, e := range in.Flow.Inputs.Resources {
		p := pr.current(e.Commodity, sectors.KindResource)
		lines = append(lines, CostLine{
			Name:        e.Commodity,
			Quantity:    e.Rate,
			UnitPrice:   p,
			CostPerHour: e.Rate * p / growth,
		})
	}

	var revenue float64
	for _, e := range in.Flow.Inputs.Products {
		p := pr.current(e.Commodity, sectors.KindProduct)
		mult := discount
		if c.isElectricity(e.Commodity) {
			mult = 1.0
		}
		revenue += e.Rate * p * mult
		lines = append(lines, CostLine{
			Name:        e.Commodity,
			Quantity:    e.Rate,
			UnitPrice:   p * mult,
			CostPerHour: e.Rate * p * mult / growth,
		})
	}

	if len(lines) == 0 {
		lines = []CostLine{baseCostLine(in.UnitConfig.BaseCost)}
	}
	if len(in.Flow.Inputs.Products) == 0 {
		revenue = in.UnitConfig.BaseRevenue
	}
	return revenue, lines
}

func (c *Calculator) production(in Input, pr *pricing) (float64, []CostLine) {
	produced := in.Sector.ProducedProduct
	if produced == "" {
		return in.UnitConfig.BaseRevenue, []CostLine{baseCostLine(in.UnitConfig.BaseCost)}
	}

	out := pr.get(produced, sectors.KindProduct)
	revenue := out.ReferenceValue + out.CurrentPrice*c.outputRate(in, produced)

	lines := []CostLine{{
		Name:        "Labor",
		Quantity:    1,
		UnitPrice:   in.UnitConfig.LaborCost,
		CostPerHour: in.UnitConfig.LaborCost,
	}}
	for _, e := range in.Flow.Inputs.Resources {
		p := pr.current(e.Commodity, sectors.KindResource)
		lines = append(lines, CostLine{Name: e.Commodity, Quantity: e.Rate, UnitPrice: p, CostPerHour: e.Rate * p})
	}
	for _, e := range in.Flow.Inputs.Products {
		p := pr.current(e.Commodity, sectors.KindProduct)
		mult := 1.0
		if c.isElectricity(produced) && c.isElectricity(e.Commodity) {
			mult = c.settings.InternalElectricityMultiplier
		}
		lines = append(lines, CostLine{
			Name:        e.Commodity,
			Quantity:    e.Rate,
			UnitPrice:   p * mult,
			CostPerHour: e.Rate * p * mult,
		})
	}
	return revenue, lines
}

func (c *Calculator) extraction(in Input, pr *pricing) (float64, []CostLine) {
	lines := []CostLine{baseCostLine(in.UnitConfig.BaseCost)}
	for _, e := range in.Flow.Inputs.Resources {
		p := pr.current(e.Commodity, sectors.KindResource)
		lines = append(lines, CostLine{Name: e.Commodity, Quantity: e.Rate, UnitPrice: p, CostPerHour: e.Rate * p})
	}
	for _, e := range in.Flow.Inputs.Products {
		p := pr.current(e.Commodity, sectors.KindProduct)
		lines = append(lines, CostLine{Name: e.Commodity, Quantity: e.Rate, UnitPrice: p, CostPerHour: e.Rate * p})
	}

	resource := extractedResource(in)
	if resource == "" {
		return in.UnitConfig.BaseRevenue, lines
	}
	rp := pr.get(resource, sectors.KindResource)
	return rp.BasePrice + rp.CurrentPrice*c.outputRate(in, resource), lines
}

// extractedResource is the sector's primary resource when it can extract,
// otherwise the first resource output of the flow.
func extractedResource(in Input) string {
	if in.Sector.CanExtract && in.Sector.PrimaryResource != "" {
		return in.Sector.PrimaryResource
	}
	if len(in.Flow.Outputs.Resources) > 0 {
		return in.Flow.Outputs.Resources[0].Commodity
	}
	return ""
}

// outputRate prefers the flow's output entry, then the unit's configured
// rate, then the settings default.
func (c *Calculator) outputRate(in Input, commodity string) float64 {
	if e, ok := in.Flow.Output(commodity); ok {
		return e.Rate
	}
	if in.UnitConfig.OutputRate != nil {
		return *in.UnitConfig.OutputRate
	}
	return c.settings.DefaultOutputRate
}

func (c *Calculator) isElectricity(name string) bool {
	return name == c.settings.ElectricityProduct
}

func baseCostLine(cost float64) CostLine {
	return CostLine{Name: "Base cost", Quantity: 1, UnitPrice: cost, CostPerHour: cost}
}

// Project scales hourly figures to a display window (e.g. 96 hours). It is a
// presentation helper; the engine itself only reports hourly values.
func Project(r EconomicsResult, hours int) EconomicsResult {
	h := float64(max(hours, 0))
	out := r
	out.RevenuePerHour *= h
	out.CostPerHour *= h
	out.ProfitPerHour = out.RevenuePerHour - out.CostPerHour
	out.CostBreakdown = make([]CostLine, len(r.CostBreakdown))
	for i, l := range r.CostBreakdown {
		l.Quantity *= h
		l.CostPerHour *= h
		out.CostBreakdown[i] = l
	}
	out.MissingPrices = slices.Clone(r.MissingPrices)
	return out
}

// Summary aggregates results for portfolio-level reporting.
type Summary struct {
	Units          int     `json:"units"`
	RevenuePerHour float64 `json:"revenue_per_hour"`
	CostPerHour    float64 `json:"cost_per_hour"`
	ProfitPerHour  float64 `json:"profit_per_hour"`
	Incomplete     bool    `json:"incomplete"`
}

// Aggregate sums results in slice order.
func Aggregate(results []EconomicsResult) Summary {
	var s Summary
	for _, r := range results {
		s.Units += r.UnitCount
		s.RevenuePerHour += r.RevenuePerHour
		s.CostPerHour += r.CostPerHour
		s.Incomplete = s.Incomplete || r.Incomplete
	}
	s.ProfitPerHour = s.RevenuePerHour - s.CostPerHour
	return s
}

// Fingerprint is a BLAKE3 digest of the result's JSON encoding. Two call
// sites that computed the same economics produce the same fingerprint.
func Fingerprint(r EconomicsResult) string {
	data, err := json.Marshal(r)
	if err != nil {
		// Only NaN/Inf fail to encode; hash their textual form instead.
		data = []byte(fmt.Sprintf("%#v", r))
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
