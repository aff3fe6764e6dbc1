package rfm

import (
	"sort"

	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/pkg/formulas"
)

// Tertile cut points
const (
	LowerQuantile = 0.33
	UpperQuantile = 0.66
)

// Boundaries are the two cut points of one metric. Values up to Lower are
// Low, up to Upper are Mid, the rest High.
type Boundaries struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	// EqualWidth is set when the quantiles collapsed and the range was split
	// into three equal parts instead.
	EqualWidth bool `json:"equal_width"`
}

// ComputeBoundaries returns tertile boundaries for values.
// When the two quantiles coincide, [min, max] is split into equal thirds.
// When every value is the same both boundaries equal it, so every value
// bins Low (High when reversed).
func ComputeBoundaries(values []float64) Boundaries {
	if len(values) == 0 {
		return Boundaries{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	lower := formulas.PercentileSorted(sorted, LowerQuantile)
	upper := formulas.PercentileSorted(sorted, UpperQuantile)
	if lower != upper {
		return Boundaries{Lower: lower, Upper: upper}
	}

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		return Boundaries{Lower: lo, Upper: hi, EqualWidth: true}
	}
	width := (hi - lo) / 3
	return Boundaries{Lower: lo + width, Upper: lo + 2*width, EqualWidth: true}
}

// Assign bins v. With reverse set, small values rank High (used for recency,
// where fewer days since the last purchase is better).
func (b Boundaries) Assign(v float64, reverse bool) Bin {
	bin := High
	switch {
	case v <= b.Lower:
		bin = Low
	case v <= b.Upper:
		bin = Mid
	}
	if reverse {
		return High + Low - bin
	}
	return bin
}

// CustomerSegment is a customer's metrics with its assigned label
type CustomerSegment struct {
	domain.CustomerMetrics
	Label   Label       `json:"label"`
	Code    string      `json:"code"`
	Segment SegmentName `json:"segment"`
}

// Segmentation holds the boundaries used for one segmentation run
type Segmentation struct {
	Recency   Boundaries `json:"recency"`
	Frequency Boundaries `json:"frequency"`
	Monetary  Boundaries `json:"monetary"`
}

// NewSegmentation computes boundaries for each metric across metrics
func NewSegmentation(metrics []domain.CustomerMetrics) Segmentation {
	recency := make([]float64, len(metrics))
	frequency := make([]float64, len(metrics))
	monetary := make([]float64, len(metrics))
	for i, m := range metrics {
		recency[i] = float64(m.Recency)
		frequency[i] = float64(m.Frequency)
		monetary[i] = m.Monetary.InexactFloat64()
	}

	return Segmentation{
		Recency:   ComputeBoundaries(recency),
		Frequency: ComputeBoundaries(frequency),
		Monetary:  ComputeBoundaries(monetary),
	}
}

// Label bins a single customer against the boundaries
func (s Segmentation) Label(m domain.CustomerMetrics) Label {
	return Label{
		Recency:   s.Recency.Assign(float64(m.Recency), true),
		Frequency: s.Frequency.Assign(float64(m.Frequency), false),
		Monetary:  s.Monetary.Assign(m.Monetary.InexactFloat64(), false),
	}
}

// SegmentAll labels every customer, preserving input order
func SegmentAll(metrics []domain.CustomerMetrics) []CustomerSegment {
	seg := NewSegmentation(metrics)

	out := make([]CustomerSegment, len(metrics))
	for i, m := range metrics {
		label := seg.Label(m)
		out[i] = CustomerSegment{
			CustomerMetrics: m,
			Label:           label,
			Code:            label.Code(),
			Segment:         label.Name(),
		}
	}
	return out
}

// Segment returns a label per customer id
func Segment(metrics []domain.CustomerMetrics) map[string]Label {
	segments := SegmentAll(metrics)
	out := make(map[string]Label, len(segments))
	for _, s := range segments {
		out[s.CustomerID] = s.Label
	}
	return out
}
