package simulation

import (
	"fmt"

	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/pkg/formulas"
)

// ElasticityLookup returns the elasticity estimate for a stock item
type ElasticityLookup func(stockCode string) (float64, error)

// PortfolioItem is one item's baseline in a portfolio scenario
type PortfolioItem struct {
	StockCode        string  `json:"stock_code"`
	BaselinePrice    float64 `json:"baseline_price"`
	BaselineQuantity float64 `json:"baseline_quantity"`
}

// ItemOutcome is the per-item part of a PortfolioResult
type ItemOutcome struct {
	StockCode string `json:"stock_code"`
	Result
	// FallbackReason explains why the portfolio average was used
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// PortfolioResult sums per-item outcomes
type PortfolioResult struct {
	Items                []ItemOutcome `json:"items"`
	BaselineRevenue      float64       `json:"baseline_revenue"`
	ProjectedRevenue     float64       `json:"projected_revenue"`
	RevenueDelta         float64       `json:"revenue_delta"`
	RevenueChangePercent float64       `json:"revenue_change_percent"`
	QuantityDelta        float64       `json:"quantity_delta"`
	AverageElasticity    float64       `json:"average_elasticity"`
	FallbackItems        int           `json:"fallback_items"`
	ImplausibleItems     int           `json:"implausible_items"`
}

// SimulatePortfolio applies change to every item and sums the outcome.
//
// Items whose lookup fails with domain.InsufficientDataError are simulated with
// the mean of the available item elasticities and flagged FallbackUsed. Any
// other lookup error is returned. When no item has an estimate the result is
// an InsufficientDataError.
func SimulatePortfolio(items []PortfolioItem, lookup ElasticityLookup, change PriceChange) (*PortfolioResult, error) {
	if len(items) == 0 {
		return nil, &domain.InvalidInputError{Field: "stock_codes", Message: "at least one item is required"}
	}

	coefficients := make([]float64, len(items))
	missing := make([]error, len(items))
	available := make([]float64, 0, len(items))
	for i, item := range items {
		e, err := lookup(item.StockCode)
		if err != nil {
			if !domain.IsInsufficientData(err) {
				return nil, fmt.Errorf("failed to look up elasticity for %s: %w", item.StockCode, err)
			}
			missing[i] = err
			continue
		}
		coefficients[i] = e
		available = append(available, e)
	}

	if len(available) == 0 {
		return nil, &domain.InsufficientDataError{
			Reason: fmt.Sprintf("none of the %d items has an elasticity estimate", len(items)),
		}
	}
	average := formulas.Mean(available)

	out := &PortfolioResult{
		Items:             make([]ItemOutcome, 0, len(items)),
		AverageElasticity: average,
	}
	for i, item := range items {
		e := coefficients[i]
		if missing[i] != nil {
			e = average
		}

		res, err := Simulate(Input{
			BaselinePrice:    item.BaselinePrice,
			BaselineQuantity: item.BaselineQuantity,
			Elasticity:       e,
			Change:           change,
		})
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", item.StockCode, err)
		}

		outcome := ItemOutcome{StockCode: item.StockCode, Result: res}
		if missing[i] != nil {
			outcome.FallbackUsed = true
			outcome.FallbackReason = missing[i].Error()
			out.FallbackItems++
		}
		if res.Implausible {
			out.ImplausibleItems++
		}

		out.BaselineRevenue += res.BaselineRevenue
		out.ProjectedRevenue += res.ProjectedRevenue
		out.RevenueDelta += res.RevenueDelta
		out.QuantityDelta += res.QuantityDelta
		out.Items = append(out.Items, outcome)
	}

	if out.BaselineRevenue > 0 {
		out.RevenueChangePercent = out.RevenueDelta / out.BaselineRevenue * 100
	}
	return out, nil
}
