package simulation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/elasticom/internal/domain"
)

func lookupFrom(values map[string]float64) ElasticityLookup {
	return func(stockCode string) (float64, error) {
		if e, ok := values[stockCode]; ok {
			return e, nil
		}
		return 0, &domain.InsufficientDataError{Reason: "fewer than 2 distinct prices"}
	}
}

func TestSimulatePortfolio_SumsItems(t *testing.T) {
	items := []PortfolioItem{
		{StockCode: "A", BaselinePrice: 10, BaselineQuantity: 100},
		{StockCode: "B", BaselinePrice: 4, BaselineQuantity: 50},
	}
	res, err := SimulatePortfolio(items, lookupFrom(map[string]float64{"A": -1.5, "B": -0.5}), PercentChange(10))
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	// A: 11 * 85 = 935; B: 4.4 * 47.5 = 209
	assert.InDelta(t, 1200, res.BaselineRevenue, 1e-9)
	assert.InDelta(t, 1144, res.ProjectedRevenue, 1e-9)
	assert.InDelta(t, -56, res.RevenueDelta, 1e-9)
	assert.InDelta(t, -17.5, res.QuantityDelta, 1e-9)
	assert.InDelta(t, -1.0, res.AverageElasticity, 1e-9)
	assert.Zero(t, res.FallbackItems)
}

func TestSimulatePortfolio_FallbackIsExplicit(t *testing.T) {
	items := []PortfolioItem{
		{StockCode: "A", BaselinePrice: 10, BaselineQuantity: 100},
		{StockCode: "B", BaselinePrice: 10, BaselineQuantity: 100},
		{StockCode: "NEW", BaselinePrice: 10, BaselineQuantity: 100},
	}
	res, err := SimulatePortfolio(items, lookupFrom(map[string]float64{"A": -1, "B": -2}), PercentChange(10))
	require.NoError(t, err)

	assert.Equal(t, 1, res.FallbackItems)
	fallback := res.Items[2]
	assert.True(t, fallback.FallbackUsed)
	assert.Equal(t, -1.5, fallback.ElasticityUsed)
	assert.Contains(t, fallback.FallbackReason, "distinct prices")
	assert.False(t, res.Items[0].FallbackUsed)
}

func TestSimulatePortfolio_NoEstimates(t *testing.T) {
	items := []PortfolioItem{{StockCode: "X", BaselinePrice: 1, BaselineQuantity: 1}}
	_, err := SimulatePortfolio(items, lookupFrom(nil), PercentChange(5))
	assert.True(t, domain.IsInsufficientData(err))
}

func TestSimulatePortfolio_OtherErrorsSurface(t *testing.T) {
	items := []PortfolioItem{{StockCode: "X", BaselinePrice: 1, BaselineQuantity: 1}}
	lookup := func(string) (float64, error) {
		return 0, &domain.NumericalError{Op: "solve", Err: errors.New("singular")}
	}
	_, err := SimulatePortfolio(items, lookup, PercentChange(5))
	assert.True(t, domain.IsNumerical(err))
}

func TestSimulatePortfolio_Empty(t *testing.T) {
	_, err := SimulatePortfolio(nil, lookupFrom(nil), PercentChange(5))
	assert.True(t, domain.IsInvalidInput(err))
}

func TestSimulatePortfolio_CountsImplausible(t *testing.T) {
	items := []PortfolioItem{
		{StockCode: "A", BaselinePrice: 10, BaselineQuantity: 100},
		{StockCode: "B", BaselinePrice: 10, BaselineQuantity: 100},
	}
	res, err := SimulatePortfolio(items, lookupFrom(map[string]float64{"A": -5, "B": -0.1}), PercentChange(30))
	require.NoError(t, err)
	assert.Equal(t, 1, res.ImplausibleItems)
	assert.True(t, res.Items[0].Implausible)
}
