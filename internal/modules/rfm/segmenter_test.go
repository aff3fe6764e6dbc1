package rfm

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/elasticom/internal/domain"
	testingpkg "github.com/aristath/elasticom/internal/testing"
)

func customer(id string, recency, frequency int, monetary string) domain.CustomerMetrics {
	return domain.CustomerMetrics{
		CustomerID: id,
		Recency:    recency,
		Frequency:  frequency,
		Monetary:   decimal.RequireFromString(monetary),
	}
}

func TestComputeBoundaries_Interpolates(t *testing.T) {
	b := ComputeBoundaries([]float64{95, 5, 50})
	assert.InDelta(t, 34.7, b.Lower, 1e-9)
	assert.InDelta(t, 64.4, b.Upper, 1e-9)
	assert.False(t, b.EqualWidth)
}

func TestComputeBoundaries_EqualWidthFallback(t *testing.T) {
	b := ComputeBoundaries([]float64{1, 1, 1, 1, 1, 9})
	assert.True(t, b.EqualWidth)
	assert.InDelta(t, 1+8.0/3, b.Lower, 1e-9)
	assert.InDelta(t, 1+16.0/3, b.Upper, 1e-9)
}

func TestComputeBoundaries_Constant(t *testing.T) {
	b := ComputeBoundaries([]float64{4, 4, 4})
	assert.Equal(t, Boundaries{Lower: 4, Upper: 4, EqualWidth: true}, b)
	assert.Equal(t, Low, b.Assign(4, false))
	assert.Equal(t, High, b.Assign(4, true))

	assert.Equal(t, Boundaries{}, ComputeBoundaries(nil))
}

func TestSegment_RecencyReversed(t *testing.T) {
	labels := Segment([]domain.CustomerMetrics{
		customer("fresh", 5, 1, "10"),
		customer("middle", 50, 2, "20"),
		customer("stale", 95, 3, "30"),
	})

	assert.Equal(t, High, labels["fresh"].Recency)
	assert.Equal(t, Mid, labels["middle"].Recency)
	assert.Equal(t, Low, labels["stale"].Recency)

	assert.Equal(t, Low, labels["fresh"].Frequency)
	assert.Equal(t, High, labels["stale"].Monetary)
}

func TestSegment_DegenerateFrequency(t *testing.T) {
	metrics := make([]domain.CustomerMetrics, 0, 6)
	for i, f := range []int{1, 1, 1, 1, 1, 9} {
		metrics = append(metrics, customer(string(rune('a'+i)), i*10, f, "5"))
	}

	labels := Segment(metrics)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		assert.Equal(t, Low, labels[id].Frequency, id)
	}
	assert.Equal(t, High, labels["f"].Frequency)
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		assert.Equal(t, Low, labels[id].Monetary, id)
	}
}

func TestSegment_ConstantFrequency(t *testing.T) {
	labels := Segment([]domain.CustomerMetrics{
		customer("a", 5, 2, "10"),
		customer("b", 50, 2, "20"),
		customer("c", 95, 2, "30"),
	})

	for _, id := range []string{"a", "b", "c"} {
		assert.Equal(t, Low, labels[id].Frequency, id)
	}
	assert.Equal(t, "RH_FL_ML", labels["a"].Code())
	assert.Equal(t, "RM_FL_MM", labels["b"].Code())
	assert.Equal(t, "RL_FL_MH", labels["c"].Code())

	constantRecency := Segment([]domain.CustomerMetrics{
		customer("x", 7, 1, "10"),
		customer("y", 7, 2, "20"),
	})
	assert.Equal(t, High, constantRecency["x"].Recency)
	assert.Equal(t, High, constantRecency["y"].Recency)
}

func TestSegment_NeverFails(t *testing.T) {
	assert.Empty(t, Segment(nil))

	single := Segment([]domain.CustomerMetrics{customer("only", 3, 1, "1")})
	require.Contains(t, single, "only")
	assert.Equal(t, Label{Recency: High, Frequency: Low, Monetary: Low}, single["only"])
}

func TestSegmentAll_Fixtures(t *testing.T) {
	segments := SegmentAll(Aggregate(testingpkg.FixtureSnapshot, testingpkg.NewRFMFixtures()))
	require.Len(t, segments, 3)

	assert.Equal(t, "RH_FH_MH", segments[0].Code)
	assert.Equal(t, Champions, segments[0].Segment)
	assert.Equal(t, "RM_FM_MM", segments[1].Code)
	assert.Equal(t, AtRisk, segments[1].Segment)
	assert.Equal(t, "RL_FL_ML", segments[2].Code)
	assert.Equal(t, AtRisk, segments[2].Segment)
}

func TestBoundaries_Assign(t *testing.T) {
	b := Boundaries{Lower: 10, Upper: 20}
	tests := []struct {
		value   float64
		reverse bool
		want    Bin
	}{
		{5, false, Low},
		{10, false, Low},
		{15, false, Mid},
		{20, false, Mid},
		{21, false, High},
		{5, true, High},
		{15, true, Mid},
		{21, true, Low},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Assign(tt.value, tt.reverse), "value=%v reverse=%v", tt.value, tt.reverse)
	}
}
