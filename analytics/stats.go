package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Quantile returns the q-quantile of values using linear interpolation
// between closest ranks: position (n-1)*q over the sorted sample. ok is false
// for an empty sample.
func Quantile(values []float64, q float64) (v float64, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	q = math.Max(0, math.Min(1, q))
	pos := float64(len(sorted)-1) * q
	lo := int(math.Floor(pos))
	if lo+1 >= len(sorted) {
		return sorted[lo], true
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo]), true
}

// mean of the non-nil values; ok is false when none are present.
func mean(values []*float64) (float64, bool) {
	xs := make([]float64, 0, len(values))
	for _, v := range values {
		if v != nil && !math.IsNaN(*v) {
			xs = append(xs, *v)
		}
	}
	if len(xs) == 0 {
		return 0, false
	}
	return stat.Mean(xs, nil), true
}
