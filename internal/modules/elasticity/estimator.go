// Package elasticity estimates price elasticity of demand with a log-log
// ordinary least squares fit: ln(Q) = a + e*ln(P).
package elasticity

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/pkg/formulas"
)

const (
	// MinSampleSize is the minimum number of valid rows for a fit
	MinSampleSize = 2
	// MinDistinctPrices is the minimum number of distinct prices for the slope to be identifiable
	MinDistinctPrices = 2

	// Residual sums below this (scaled by n) are treated as zero
	zeroTolerance = 1e-12
)

// Result is the outcome of a single log-log fit.
type Result struct {
	Coefficient  float64 `json:"coefficient"`
	Intercept    float64 `json:"intercept"`
	RSquared     float64 `json:"r_squared"`
	MeanPrice    float64 `json:"mean_price"`    // Geometric mean of prices used
	MeanQuantity float64 `json:"mean_quantity"` // Geometric mean of quantities used
	SampleSize   int     `json:"sample_size"`
}

// Predict returns the fitted quantity at price: exp(a) * price^e
func (r *Result) Predict(price float64) float64 {
	if price <= 0 {
		return 0
	}
	return math.Exp(r.Intercept + r.Coefficient*math.Log(price))
}

type options struct {
	outlierK      float64
	filterOutlier bool
}

// Option configures Estimate
type Option func(*options)

// WithOutlierFilter drops rows outside [Q1 - k*IQR, Q3 + k*IQR] on either
// log axis before fitting. k <= 0 disables the filter.
func WithOutlierFilter(k float64) Option {
	return func(o *options) {
		if k > 0 {
			o.filterOutlier = true
			o.outlierK = k
		}
	}
}

// Estimate fits the log-log regression of quantities on prices.
//
// Rows with a non-positive (or non-finite) price or quantity are discarded.
// It returns *domain.InsufficientDataError when fewer than MinSampleSize rows
// survive or the surviving prices have fewer than MinDistinctPrices values,
// and *domain.NumericalError when the least squares system cannot be solved.
func Estimate(prices, quantities []float64, opts ...Option) (*Result, error) {
	if len(prices) != len(quantities) {
		return nil, &domain.InvalidInputError{
			Field:   "quantities",
			Message: fmt.Sprintf("length %d does not match prices length %d", len(quantities), len(prices)),
		}
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	validPrices, validQuantities := FilterPositive(prices, quantities)
	if err := checkSample(validPrices); err != nil {
		return nil, err
	}

	logPrices := formulas.Logs(validPrices)
	logQuantities := formulas.Logs(validQuantities)

	if o.filterOutlier {
		logPrices, logQuantities = removeOutliers(logPrices, logQuantities, o.outlierK)
		if err := checkSample(logPrices); err != nil {
			return nil, err
		}
	}

	return fit(logPrices, logQuantities)
}

// FilterPositive returns the rows where both price and quantity are finite
// and strictly positive. Order is preserved and the inputs are not modified.
func FilterPositive(prices, quantities []float64) ([]float64, []float64) {
	n := len(prices)
	if len(quantities) < n {
		n = len(quantities)
	}
	outP := make([]float64, 0, n)
	outQ := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		p, q := prices[i], quantities[i]
		if !isPositiveFinite(p) || !isPositiveFinite(q) {
			continue
		}
		outP = append(outP, p)
		outQ = append(outQ, q)
	}
	return outP, outQ
}

func isPositiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func checkSample(prices []float64) error {
	if len(prices) < MinSampleSize {
		return &domain.InsufficientDataError{
			Reason:         fmt.Sprintf("need at least %d rows with positive price and quantity", MinSampleSize),
			Valid:          len(prices),
			DistinctPrices: formulas.CountDistinct(prices),
		}
	}
	if distinct := formulas.CountDistinct(prices); distinct < MinDistinctPrices {
		return &domain.InsufficientDataError{
			Reason:         "price does not vary",
			Valid:          len(prices),
			DistinctPrices: distinct,
		}
	}
	return nil
}

func fit(logPrices, logQuantities []float64) (*Result, error) {
	n := len(logPrices)

	design := mat.NewDense(n, 2, nil)
	for i, lp := range logPrices {
		design.Set(i, 0, 1)
		design.Set(i, 1, lp)
	}
	y := mat.NewVecDense(n, logQuantities)

	var beta mat.VecDense
	if err := beta.SolveVec(design, y); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, &domain.NumericalError{Op: "least squares solve", Err: err}
		}
		// Ill-conditioned: accept only when a solution was still produced
		if beta.Len() != 2 {
			return nil, &domain.NumericalError{Op: "least squares solve", Err: err}
		}
	}

	intercept := beta.AtVec(0)
	slope := beta.AtVec(1)
	if !isFinite(intercept) || !isFinite(slope) {
		return nil, &domain.NumericalError{Op: "least squares solve", Err: errors.New("non-finite coefficients")}
	}

	r2, err := rSquared(logPrices, logQuantities, intercept, slope)
	if err != nil {
		return nil, err
	}

	return &Result{
		Coefficient:  slope,
		Intercept:    intercept,
		RSquared:     r2,
		SampleSize:   n,
		MeanPrice:    formulas.ExpMean(logPrices),
		MeanQuantity: formulas.ExpMean(logQuantities),
	}, nil
}

// rSquared computes 1 - SSres/SStot in log space, clamped to [0, 1].
// A constant response is a perfect fit when the residuals vanish.
func rSquared(x, y []float64, intercept, slope float64) (float64, error) {
	meanY := formulas.Mean(y)
	var ssRes, ssTot float64
	for i := range y {
		residual := y[i] - (intercept + slope*x[i])
		ssRes += residual * residual
		deviation := y[i] - meanY
		ssTot += deviation * deviation
	}

	tolerance := zeroTolerance * math.Max(1, float64(len(y)))
	if ssTot <= tolerance {
		if ssRes <= tolerance {
			return 1, nil
		}
		return 0, &domain.NumericalError{
			Op:  "r squared",
			Err: fmt.Errorf("constant response with residual sum %g", ssRes),
		}
	}

	r2 := 1 - ssRes/ssTot
	switch {
	case r2 < 0:
		return 0, nil
	case r2 > 1:
		return 1, nil
	}
	return r2, nil
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
