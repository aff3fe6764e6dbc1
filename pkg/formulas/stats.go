// Package formulas holds small numeric helpers shared by the analysis modules.
package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// Logs returns the elementwise natural logarithm of data.
// Callers are responsible for passing strictly positive values.
func Logs(data []float64) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = math.Log(v)
	}
	return out
}

// ExpMean back-transforms the mean of log values: exp(mean(logs)).
// Applied to ln(x) this is the geometric mean of x.
func ExpMean(logs []float64) float64 {
	if len(logs) == 0 {
		return 0
	}
	return math.Exp(stat.Mean(logs, nil))
}

// GeometricMean calculates the geometric mean of strictly positive values
func GeometricMean(data []float64) float64 {
	return ExpMean(Logs(data))
}

// Percentile returns the p-th quantile (p in [0,1]) of data using linear
// interpolation between the closest ranks, index = (n-1)*p.
// data does not need to be sorted; it is not modified.
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	return PercentileSorted(sorted, p)
}

// PercentileSorted is Percentile for input already sorted ascending.
func PercentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := float64(n-1) * p
	lower := int(idx)
	upper := lower + 1
	if upper > n-1 {
		upper = n - 1
	}
	fraction := idx - float64(lower)
	return sorted[lower] + fraction*(sorted[upper]-sorted[lower])
}

// CountDistinct returns the number of distinct values in data
func CountDistinct(data []float64) int {
	seen := make(map[float64]struct{}, len(data))
	for _, v := range data {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// RoundTo rounds value half away from zero to the given number of decimal places
func RoundTo(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}
