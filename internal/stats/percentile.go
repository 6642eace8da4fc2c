package stats

import (
	"math"
	"sort"
)

// Percentile returns the linear-interpolated order statistic at quantile
// q in [0,1] over a sorted sample set. Empty input yields 0.
func Percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Mean returns the arithmetic mean, 0 for an empty set.
func Mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	return sum / float64(len(samples))
}

// SortSamples sorts in place and returns the slice, for callers folding
// raw latencies straight into Percentile.
func SortSamples(samples []float64) []float64 {
	sort.Float64s(samples)
	return samples
}
