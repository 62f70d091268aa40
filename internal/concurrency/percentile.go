package concurrency

import (
	"math"
	"sort"

	"github.com/notmyname/logflow/internal/model"
)

// Percentile returns sorted[floor(len*p)], clamped to the last element.
// No interpolation is done. sorted must be ascending; an empty slice yields 0.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Floor(float64(n) * p))
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// Summarize computes the standard percentile row for samples. The input is
// not modified.
func Summarize(name string, samples []float64) model.PercentileRow {
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	row := model.PercentileRow{Name: name, Count: len(sorted)}
	if len(sorted) == 0 {
		return row
	}
	row.P50 = Percentile(sorted, 0.50)
	row.P90 = Percentile(sorted, 0.90)
	row.P95 = Percentile(sorted, 0.95)
	row.P99 = Percentile(sorted, 0.99)
	row.P999 = Percentile(sorted, 0.999)
	row.Max = sorted[len(sorted)-1]
	return row
}
