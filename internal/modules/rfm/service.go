package rfm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/internal/metrics"
)

// Result is one segmentation run
type Result struct {
	Snapshot   time.Time         `json:"reference_date"`
	Boundaries Segmentation      `json:"boundaries"`
	Customers  []CustomerSegment `json:"customers"`
}

// SegmentSummary aggregates the customers of one segment
type SegmentSummary struct {
	Segment       SegmentName     `json:"segment"`
	Customers     int             `json:"customers"`
	Revenue       decimal.Decimal `json:"revenue"`
	RevenueShare  float64         `json:"revenue_share"` // Percent of total revenue
	MeanRecency   float64         `json:"mean_recency"`
	MeanFrequency float64         `json:"mean_frequency"`
	MeanMonetary  float64         `json:"mean_monetary"`
}

// Summary is the per-segment rollup of a Result
type Summary struct {
	Snapshot       time.Time        `json:"reference_date"`
	TotalCustomers int              `json:"total_customers"`
	TotalRevenue   decimal.Decimal  `json:"total_revenue"`
	Segments       []SegmentSummary `json:"segments"`
}

// Service computes segmentations from the transaction store
type Service struct {
	store   domain.TransactionQuerier
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewService creates a new RFM service. When store also implements
// domain.CustomerMetricsSource the aggregation runs in the store. m may be nil.
func NewService(store domain.TransactionQuerier, m *metrics.Metrics, log zerolog.Logger) *Service {
	return &Service{
		store:   store,
		metrics: m,
		log:     log.With().Str("service", "rfm").Logger(),
	}
}

// Metrics returns the per-customer metrics for the filter scope
func (s *Service) Metrics(ctx context.Context, snapshot time.Time, filter domain.TransactionFilter) ([]domain.CustomerMetrics, error) {
	if source, ok := s.store.(domain.CustomerMetricsSource); ok {
		out, err := source.CustomerMetrics(ctx, filter, snapshot)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate customer metrics: %w", err)
		}
		return out, nil
	}

	records, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	return Aggregate(snapshot, records), nil
}

// Compute segments every customer in the filter scope as of snapshot
func (s *Service) Compute(ctx context.Context, snapshot time.Time, filter domain.TransactionFilter) (*Result, error) {
	customers, err := s.Metrics(ctx, snapshot, filter)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Snapshot:   snapshot,
		Boundaries: NewSegmentation(customers),
		Customers:  SegmentAll(customers),
	}

	counts := make(map[string]int)
	for _, c := range result.Customers {
		counts[string(c.Segment)]++
	}
	s.metrics.SetSegmentCounts(counts)

	s.log.Debug().
		Int("customers", len(result.Customers)).
		Bool("recency_equal_width", result.Boundaries.Recency.EqualWidth).
		Bool("frequency_equal_width", result.Boundaries.Frequency.EqualWidth).
		Bool("monetary_equal_width", result.Boundaries.Monetary.EqualWidth).
		Msg("Computed RFM segmentation")

	return result, nil
}

// Summary rolls a segmentation up per segment name. Every named segment is
// present, Other only when some customer falls into it.
func (s *Service) Summary(ctx context.Context, snapshot time.Time, filter domain.TransactionFilter) (*Summary, error) {
	result, err := s.Compute(ctx, snapshot, filter)
	if err != nil {
		return nil, err
	}
	return Summarize(result), nil
}

// Summarize builds the per-segment rollup of result
func Summarize(result *Result) *Summary {
	type totals struct {
		customers int
		revenue   decimal.Decimal
		recency   float64
		frequency float64
	}

	bySegment := make(map[SegmentName]*totals)
	total := decimal.Zero
	for _, c := range result.Customers {
		t, ok := bySegment[c.Segment]
		if !ok {
			t = &totals{}
			bySegment[c.Segment] = t
		}
		t.customers++
		t.revenue = t.revenue.Add(c.Monetary)
		t.recency += float64(c.Recency)
		t.frequency += float64(c.Frequency)
		total = total.Add(c.Monetary)
	}

	names := SegmentOrder
	if _, ok := bySegment[Other]; ok {
		names = append(append([]SegmentName{}, SegmentOrder...), Other)
	}

	summary := &Summary{
		Snapshot:       result.Snapshot,
		TotalCustomers: len(result.Customers),
		TotalRevenue:   total,
		Segments:       make([]SegmentSummary, 0, len(names)),
	}
	for _, name := range names {
		entry := SegmentSummary{Segment: name, Revenue: decimal.Zero}
		if t, ok := bySegment[name]; ok {
			n := float64(t.customers)
			entry.Customers = t.customers
			entry.Revenue = t.revenue
			entry.MeanRecency = t.recency / n
			entry.MeanFrequency = t.frequency / n
			entry.MeanMonetary = t.revenue.InexactFloat64() / n
			if total.IsPositive() {
				entry.RevenueShare = t.revenue.Div(total).Mul(decimal.NewFromInt(100)).InexactFloat64()
			}
		}
		summary.Segments = append(summary.Segments, entry)
	}
	return summary
}

// CustomersInSegment returns the ids of customers whose label matches
// segment. segment is either a code such as "RH_FH_MH" or a segment name.
func (s *Service) CustomersInSegment(ctx context.Context, segment string, snapshot time.Time, filter domain.TransactionFilter) ([]string, error) {
	match, err := segmentMatcher(segment)
	if err != nil {
		return nil, err
	}

	result, err := s.Compute(ctx, snapshot, filter)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0)
	for _, c := range result.Customers {
		if match(c) {
			ids = append(ids, c.CustomerID)
		}
	}
	return ids, nil
}

// CustomersBySegment groups customer ids by segment name
func (s *Service) CustomersBySegment(ctx context.Context, snapshot time.Time, filter domain.TransactionFilter) (map[SegmentName][]string, error) {
	result, err := s.Compute(ctx, snapshot, filter)
	if err != nil {
		return nil, err
	}

	out := make(map[SegmentName][]string)
	for _, c := range result.Customers {
		out[c.Segment] = append(out[c.Segment], c.CustomerID)
	}
	return out, nil
}

func segmentMatcher(segment string) (func(CustomerSegment) bool, error) {
	if label, ok := ParseCode(segment); ok {
		return func(c CustomerSegment) bool { return c.Label == label }, nil
	}
	if name, ok := ParseSegmentName(segment); ok {
		return func(c CustomerSegment) bool { return c.Segment == name }, nil
	}
	if isOther(segment) {
		return nil, &domain.InvalidInputError{
			Field:   "segment",
			Message: "Other is not assigned by segmentation; filter by a named segment or a code",
		}
	}
	return nil, &domain.InvalidInputError{
		Field:   "segment",
		Message: fmt.Sprintf("unknown segment %q", segment),
	}
}
