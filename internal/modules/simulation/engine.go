// Package simulation projects quantity and revenue under a price change
// using a constant-elasticity demand response: %dQ = e * %dP.
package simulation

import (
	"fmt"
	"math"

	"github.com/aristath/elasticom/internal/domain"
)

// ChangeKind selects how a PriceChange value is interpreted
type ChangeKind int

const (
	// Percent is a signed percentage of the baseline price (10 means +10%)
	Percent ChangeKind = iota
	// Absolute is a signed amount in price units
	Absolute
)

// PriceChange is a proposed price delta
type PriceChange struct {
	Kind  ChangeKind
	Value float64
}

// PercentChange returns a change of pct percent
func PercentChange(pct float64) PriceChange {
	return PriceChange{Kind: Percent, Value: pct}
}

// AbsoluteChange returns a change of amount price units
func AbsoluteChange(amount float64) PriceChange {
	return PriceChange{Kind: Absolute, Value: amount}
}

// Ratio returns the change as a fraction of baselinePrice
func (c PriceChange) Ratio(baselinePrice float64) float64 {
	if c.Kind == Absolute {
		return c.Value / baselinePrice
	}
	return c.Value / 100
}

func (c PriceChange) String() string {
	if c.Kind == Absolute {
		return fmt.Sprintf("%+g", c.Value)
	}
	return fmt.Sprintf("%+g%%", c.Value)
}

// Input is a single-item scenario
type Input struct {
	BaselinePrice    float64
	BaselineQuantity float64
	Elasticity       float64
	Change           PriceChange
}

// Result is the projected outcome of a scenario.
// ProjectedQuantity is never clamped; Implausible is set when it is negative.
type Result struct {
	BaselinePrice         float64 `json:"baseline_price"`
	BaselineQuantity      float64 `json:"baseline_quantity"`
	BaselineRevenue       float64 `json:"baseline_revenue"`
	NewPrice              float64 `json:"new_price"`
	PriceChangePercent    float64 `json:"price_change_percent"`
	ProjectedQuantity     float64 `json:"projected_quantity"`
	QuantityDelta         float64 `json:"quantity_delta"`
	QuantityChangePercent float64 `json:"quantity_change_percent"`
	ProjectedRevenue      float64 `json:"projected_revenue"`
	RevenueDelta          float64 `json:"revenue_delta"`
	RevenueChangePercent  float64 `json:"revenue_change_percent"`
	ElasticityUsed        float64 `json:"elasticity_used"`
	Implausible           bool    `json:"implausible"`
	FallbackUsed          bool    `json:"fallback_used"`
}

// Simulate applies the constant-elasticity response to in.
func Simulate(in Input) (Result, error) {
	if err := validate(in); err != nil {
		return Result{}, err
	}

	priceRatio := in.Change.Ratio(in.BaselinePrice)
	if priceRatio <= -1 {
		return Result{}, &domain.InvalidInputError{
			Field:   "price_change",
			Message: fmt.Sprintf("change %s leaves no positive price", in.Change),
		}
	}
	quantityRatio := in.Elasticity * priceRatio

	newPrice := in.BaselinePrice * (1 + priceRatio)
	projectedQuantity := in.BaselineQuantity * (1 + quantityRatio)
	baselineRevenue := in.BaselinePrice * in.BaselineQuantity
	projectedRevenue := newPrice * projectedQuantity

	res := Result{
		BaselinePrice:         in.BaselinePrice,
		BaselineQuantity:      in.BaselineQuantity,
		BaselineRevenue:       baselineRevenue,
		NewPrice:              newPrice,
		PriceChangePercent:    priceRatio * 100,
		ProjectedQuantity:     projectedQuantity,
		QuantityDelta:         projectedQuantity - in.BaselineQuantity,
		QuantityChangePercent: quantityRatio * 100,
		ProjectedRevenue:      projectedRevenue,
		RevenueDelta:          projectedRevenue - baselineRevenue,
		ElasticityUsed:        in.Elasticity,
		Implausible:           projectedQuantity < 0,
	}
	if baselineRevenue > 0 {
		res.RevenueChangePercent = res.RevenueDelta / baselineRevenue * 100
	}
	return res, nil
}

func validate(in Input) error {
	switch {
	case !isFinite(in.BaselinePrice) || in.BaselinePrice <= 0:
		return &domain.InvalidInputError{Field: "baseline_price", Message: "must be a positive number"}
	case !isFinite(in.BaselineQuantity) || in.BaselineQuantity < 0:
		return &domain.InvalidInputError{Field: "baseline_quantity", Message: "must be a non-negative number"}
	case !isFinite(in.Elasticity):
		return &domain.InvalidInputError{Field: "elasticity", Message: "must be finite"}
	case !isFinite(in.Change.Value):
		return &domain.InvalidInputError{Field: "price_change", Message: "must be finite"}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
