package engine

import (
	"math"

	"github.com/Egg3901/corpgame-sub003/internal/sectors"
)

// CapacityStatus flags how close a sector is to its unit cap in one state.
type CapacityStatus string

const (
	CapacityOK   CapacityStatus = "ok"
	CapacityNear CapacityStatus = "near"
	CapacityAt   CapacityStatus = "at"
)

// DefaultNearCapacityRatio is the share of capacity from which a sector is
// reported as near capacity.
const DefaultNearCapacityRatio = 0.8

// Capacity returns floor(base x multiplier), saturating at math.MaxInt.
// Non-positive or non-finite inputs give 0.
func Capacity(base int, multiplier float64) int {
	if base <= 0 || !(multiplier > 0) || math.IsInf(multiplier, 0) {
		return 0
	}
	v := math.Floor(float64(base) * multiplier)
	if v >= math.MaxInt {
		return math.MaxInt
	}
	return int(v)
}

// CheckCapacity classifies total units against capacity using the default
// near-capacity ratio.
func CheckCapacity(total, capacity int) CapacityStatus {
	return CheckCapacityRatio(total, capacity, DefaultNearCapacityRatio)
}

// CheckCapacityRatio is CheckCapacity with an explicit near threshold.
// A zero capacity is always "at": nothing more can be built.
func CheckCapacityRatio(total, capacity int, near float64) CapacityStatus {
	if capacity <= 0 || total >= capacity {
		return CapacityAt
	}
	if float64(total) >= near*float64(capacity) {
		return CapacityNear
	}
	return CapacityOK
}

// SectorLoad totals the units a sector holds across its enabled unit types.
// Disabled unit types contribute 0 and negative counts are ignored.
func SectorLoad(catalog *sectors.Catalog, sector string, counts map[sectors.UnitType]int) int {
	total := 0
	for _, u := range sectors.UnitTypes {
		if n := counts[u]; n > 0 && catalog.UnitEnabled(sector, u) {
			total += n
		}
	}
	return total
}

// CapacityReport is the capacity picture of one sector in one state.
type CapacityReport struct {
	Sector    string         `json:"sector"`
	State     string         `json:"state"`
	Capacity  int            `json:"capacity"`
	Units     int            `json:"units"`
	Remaining int            `json:"remaining"`
	Status    CapacityStatus `json:"status"`
}

// CanBuild reports whether one more unit fits.
func (r CapacityReport) CanBuild() bool {
	return r.Status != CapacityAt
}
