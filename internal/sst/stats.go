package sst

import (
	"math"
	"sort"
)

// computeStats summarizes values. ok is false when values is empty, in
// which case the caller must treat the whole response as a no-data error.
func computeStats(values []float64) (Stats, bool) {
	if len(values) == 0 {
		return Stats{}, false
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	return Stats{
		Mean: sum / float64(len(sorted)),
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		P10:  quantile(sorted, 0.1),
		P90:  quantile(sorted, 0.9),
	}, true
}

// quantile computes the q-th quantile of a sorted slice by linear
// interpolation between closest ranks: pos = (n-1)*q, interpolating
// between sorted[floor(pos)] and its successor.
func quantile(sorted []float64, q float64) float64 {
	pos := float64(len(sorted)-1) * q
	base := int(math.Floor(pos))
	rest := pos - float64(base)
	if base+1 >= len(sorted) {
		return sorted[base]
	}
	return sorted[base] + rest*(sorted[base+1]-sorted[base])
}
