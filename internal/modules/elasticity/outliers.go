package elasticity

import (
	"sort"

	"github.com/aristath/elasticom/pkg/formulas"
)

// DefaultOutlierK is the conventional Tukey fence multiplier
const DefaultOutlierK = 1.5

// removeOutliers keeps the pairs that fall inside the IQR fences on both axes.
func removeOutliers(x, y []float64, k float64) ([]float64, []float64) {
	lowerX, upperX := fences(x, k)
	lowerY, upperY := fences(y, k)

	outX := make([]float64, 0, len(x))
	outY := make([]float64, 0, len(y))
	for i := range x {
		if x[i] < lowerX || x[i] > upperX || y[i] < lowerY || y[i] > upperY {
			continue
		}
		outX = append(outX, x[i])
		outY = append(outY, y[i])
	}
	return outX, outY
}

func fences(data []float64, k float64) (float64, float64) {
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	q1 := formulas.PercentileSorted(sorted, 0.25)
	q3 := formulas.PercentileSorted(sorted, 0.75)
	iqr := q3 - q1
	return q1 - k*iqr, q3 + k*iqr
}
