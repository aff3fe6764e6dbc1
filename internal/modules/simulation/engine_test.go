package simulation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/elasticom/internal/domain"
)

func TestSimulate_PriceIncrease(t *testing.T) {
	res, err := Simulate(Input{
		BaselinePrice:    10,
		BaselineQuantity: 100,
		Elasticity:       -1.5,
		Change:           PercentChange(10),
	})
	require.NoError(t, err)

	assert.InDelta(t, 11, res.NewPrice, 1e-9)
	assert.InDelta(t, 85, res.ProjectedQuantity, 1e-9)
	assert.InDelta(t, -15, res.QuantityDelta, 1e-9)
	assert.InDelta(t, -15, res.QuantityChangePercent, 1e-9)
	assert.InDelta(t, 1000, res.BaselineRevenue, 1e-9)
	assert.InDelta(t, 935, res.ProjectedRevenue, 1e-9)
	assert.InDelta(t, -65, res.RevenueDelta, 1e-9)
	assert.InDelta(t, -6.5, res.RevenueChangePercent, 1e-9)
	assert.Equal(t, -1.5, res.ElasticityUsed)
	assert.False(t, res.Implausible)
	assert.False(t, res.FallbackUsed)
}

func TestSimulate_ImplausibleNotClamped(t *testing.T) {
	res, err := Simulate(Input{
		BaselinePrice:    10,
		BaselineQuantity: 100,
		Elasticity:       -5,
		Change:           PercentChange(30),
	})
	require.NoError(t, err)

	assert.True(t, res.Implausible)
	assert.InDelta(t, -50, res.ProjectedQuantity, 1e-9)
	assert.Less(t, res.ProjectedRevenue, 0.0)
}

func TestSimulate_AbsoluteChange(t *testing.T) {
	abs, err := Simulate(Input{BaselinePrice: 8, BaselineQuantity: 50, Elasticity: -0.8, Change: AbsoluteChange(-2)})
	require.NoError(t, err)
	pct, err := Simulate(Input{BaselinePrice: 8, BaselineQuantity: 50, Elasticity: -0.8, Change: PercentChange(-25)})
	require.NoError(t, err)

	assert.InDelta(t, 6, abs.NewPrice, 1e-9)
	assert.InDelta(t, -25, abs.PriceChangePercent, 1e-9)
	assert.InDelta(t, pct.ProjectedQuantity, abs.ProjectedQuantity, 1e-9)
	assert.InDelta(t, 60, abs.ProjectedQuantity, 1e-9)
}

func TestSimulate_ZeroChangeIsIdentity(t *testing.T) {
	res, err := Simulate(Input{BaselinePrice: 2.55, BaselineQuantity: 40, Elasticity: -2.1, Change: PercentChange(0)})
	require.NoError(t, err)
	assert.Equal(t, 40.0, res.ProjectedQuantity)
	assert.Equal(t, 0.0, res.RevenueDelta)
}

func TestSimulate_ZeroBaselineQuantity(t *testing.T) {
	res, err := Simulate(Input{BaselinePrice: 5, BaselineQuantity: 0, Elasticity: -1, Change: PercentChange(10)})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.RevenueChangePercent)
}

func TestSimulate_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{"zero price", Input{BaselinePrice: 0, BaselineQuantity: 1, Change: PercentChange(5)}, "baseline_price"},
		{"negative quantity", Input{BaselinePrice: 1, BaselineQuantity: -1, Change: PercentChange(5)}, "baseline_quantity"},
		{"nan elasticity", Input{BaselinePrice: 1, BaselineQuantity: 1, Elasticity: math.NaN()}, "elasticity"},
		{"infinite change", Input{BaselinePrice: 1, BaselineQuantity: 1, Change: PercentChange(math.Inf(1))}, "price_change"},
		{"price wiped out", Input{BaselinePrice: 1, BaselineQuantity: 1, Change: PercentChange(-100)}, "price_change"},
		{"absolute below zero", Input{BaselinePrice: 3, BaselineQuantity: 1, Change: AbsoluteChange(-4)}, "price_change"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Simulate(tt.in)
			var invalid *domain.InvalidInputError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestPriceChange_String(t *testing.T) {
	assert.Equal(t, "+10%", PercentChange(10).String())
	assert.Equal(t, "-2.5", AbsoluteChange(-2.5).String())
}
