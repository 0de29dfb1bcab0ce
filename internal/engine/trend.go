package engine

import (
	"slices"
	"time"
)

// DefaultTrendWindow is the number of trailing changes averaged by
// TrailingChange when no window is given.
const DefaultTrendWindow = 4

// PricePoint is one recorded price of a commodity or stock.
type PricePoint struct {
	Price      float64   `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}

// TrailingChange returns the mean of the last window consecutive percentage
// changes in history. History may be unsorted; it is ordered by RecordedAt
// on a copy. Steps from a zero price are skipped. Returns 0 when fewer than
// two points exist or no step is usable.
func TrailingChange(history []PricePoint, window int) float64 {
	if len(history) < 2 {
		return 0
	}
	if window <= 0 {
		window = DefaultTrendWindow
	}

	sorted := slices.Clone(history)
	slices.SortStableFunc(sorted, func(a, b PricePoint) int {
		return a.RecordedAt.Compare(b.RecordedAt)
	})

	changes := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1].Price
		if prev == 0 {
			continue
		}
		changes = append(changes, (sorted[i].Price-prev)/prev*100)
	}
	if len(changes) == 0 {
		return 0
	}
	if len(changes) > window {
		changes = changes[len(changes)-window:]
	}
	return mean(changes)
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}
