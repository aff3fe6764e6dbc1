// Package dashboard rolls the segmentation and elasticity fits up into
// per-segment indicators, a revenue treemap and revenue trends.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/internal/modules/elasticity"
	"github.com/aristath/elasticom/internal/modules/rfm"
	"github.com/aristath/elasticom/internal/utils"
	"github.com/aristath/elasticom/pkg/formulas"
)

// PriceSensitivityScale maps a mean |elasticity| of 3 to a sensitivity of 100
const PriceSensitivityScale = 33.33

// Estimator fits elasticity for every item in scope
type Estimator interface {
	EstimateItems(ctx context.Context, filter domain.TransactionFilter) (*elasticity.Report, error)
}

// Segmenter computes the customer segmentation
type Segmenter interface {
	Compute(ctx context.Context, snapshot time.Time, filter domain.TransactionFilter) (*rfm.Result, error)
}

// Granularity is the bucket width of a revenue trend
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

// ParseGranularity accepts day, week or month (or daily, weekly, monthly).
// An empty string means Day.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "day", "daily":
		return Day, nil
	case "week", "weekly":
		return Week, nil
	case "month", "monthly":
		return Month, nil
	default:
		return "", &domain.InvalidInputError{Field: "granularity", Message: "must be day, week or month"}
	}
}

// PeriodStart returns the first day of the period containing t.
// Weeks start on Monday.
func (g Granularity) PeriodStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch g {
	case Week:
		return day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
	case Month:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

// SegmentKPI holds the indicators of one segment. Percentages are on a 0-100
// scale rounded to one decimal.
type SegmentKPI struct {
	Segment          rfm.SegmentName `json:"segment"`
	Customers        int             `json:"customers"`
	PriceSensitivity float64         `json:"price_sensitivity"`
	WalletShare      float64         `json:"wallet_share"`
	ChurnRisk        float64         `json:"churn_risk"`
}

// KPIs lists every named segment in value order, empty ones with zeros
type KPIs struct {
	ReferenceDate time.Time    `json:"reference_date"`
	Segments      []SegmentKPI `json:"segments"`
}

// TreemapItem is one tile of the segment treemap
type TreemapItem struct {
	Segment   rfm.SegmentName `json:"segment"`
	Revenue   decimal.Decimal `json:"revenue"`
	Score     float64         `json:"score"` // Mean RFM score scaled to 1-5
	Customers int             `json:"customers"`
}

// Treemap lists the non-empty segments in value order
type Treemap struct {
	ReferenceDate  time.Time     `json:"reference_date"`
	TotalCustomers int           `json:"total_customers"`
	Items          []TreemapItem `json:"items"`
}

// TrendPoint is the revenue of each named segment over one period
type TrendPoint struct {
	Period  string                              `json:"period"`
	Revenue map[rfm.SegmentName]decimal.Decimal `json:"revenue"`
}

// Trends is a revenue time series ordered by period
type Trends struct {
	ReferenceDate time.Time    `json:"reference_date"`
	Granularity   Granularity  `json:"granularity"`
	Points        []TrendPoint `json:"points"`
}

// Service computes dashboard views
type Service struct {
	store     domain.TransactionQuerier
	estimator Estimator
	segmenter Segmenter
	log       zerolog.Logger
}

// NewService creates a new dashboard service
func NewService(store domain.TransactionQuerier, estimator Estimator, segmenter Segmenter, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		estimator: estimator,
		segmenter: segmenter,
		log:       log.With().Str("service", "dashboard").Logger(),
	}
}

// KPIs computes, per segment:
//
//	price sensitivity  mean |elasticity| over the distinct (customer, item)
//	                   purchases of fitted items, times PriceSensitivityScale, capped at 100
//	wallet share       segment revenue as a share of all segmented revenue
//	churn risk         mean recency as a share of the largest recency
func (s *Service) KPIs(ctx context.Context, snapshot time.Time, filter domain.TransactionFilter) (*KPIs, error) {
	segmentation, err := s.segmenter.Compute(ctx, snapshot, filter)
	if err != nil {
		return nil, err
	}

	out := &KPIs{ReferenceDate: snapshot, Segments: make([]SegmentKPI, 0, len(rfm.SegmentOrder))}
	if len(segmentation.Customers) == 0 {
		for _, name := range rfm.SegmentOrder {
			out.Segments = append(out.Segments, SegmentKPI{Segment: name})
		}
		return out, nil
	}

	sensitivity, err := s.segmentElasticities(ctx, segmentation, filter)
	if err != nil {
		return nil, err
	}

	totalRevenue := decimal.Zero
	maxRecency := 1
	bySegment := make(map[rfm.SegmentName][]rfm.CustomerSegment)
	for _, c := range segmentation.Customers {
		totalRevenue = totalRevenue.Add(c.Monetary)
		if c.Recency > maxRecency {
			maxRecency = c.Recency
		}
		bySegment[c.Segment] = append(bySegment[c.Segment], c)
	}
	total := math.Max(totalRevenue.InexactFloat64(), 1)

	for _, name := range rfm.SegmentOrder {
		customers := bySegment[name]
		kpi := SegmentKPI{Segment: name, Customers: len(customers)}
		if len(customers) == 0 {
			out.Segments = append(out.Segments, kpi)
			continue
		}

		revenue := decimal.Zero
		recencies := make([]float64, len(customers))
		for i, c := range customers {
			revenue = revenue.Add(c.Monetary)
			recencies[i] = float64(c.Recency)
		}

		kpi.WalletShare = formulas.RoundTo(revenue.InexactFloat64()/total*100, 1)
		kpi.ChurnRisk = formulas.RoundTo(formulas.Mean(recencies)/float64(maxRecency)*100, 1)
		kpi.PriceSensitivity = formulas.RoundTo(math.Min(100, formulas.Mean(sensitivity[name])*PriceSensitivityScale), 1)
		out.Segments = append(out.Segments, kpi)
	}

	return out, nil
}

// segmentElasticities collects |elasticity| per segment, one value for each
// distinct customer and fitted item bought
func (s *Service) segmentElasticities(ctx context.Context, segmentation *rfm.Result, filter domain.TransactionFilter) (map[rfm.SegmentName][]float64, error) {
	report, err := s.estimator.EstimateItems(ctx, filter)
	if err != nil {
		return nil, err
	}
	coefficients := make(map[string]float64, len(report.Results))
	for _, r := range report.Results {
		coefficients[r.StockCode] = math.Abs(r.Coefficient)
	}

	segmentOf := segmentIndex(segmentation)
	records, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	type purchase struct{ customer, stockCode string }
	seen := make(map[purchase]struct{})
	out := make(map[rfm.SegmentName][]float64)
	for _, r := range records {
		if !r.IsSale() {
			continue
		}
		coef, fitted := coefficients[r.StockCode]
		seg, segmented := segmentOf[r.Customer()]
		if !fitted || !segmented {
			continue
		}
		key := purchase{r.Customer(), r.StockCode}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out[seg] = append(out[seg], coef)
	}
	return out, nil
}

// Treemap sizes each segment by revenue and colours it by score. A customer's
// score is the mean of its three bins (Low 1, Mid 2, High 3); the segment
// mean m is shown as (m-1)*2+1 clamped to [1, 5].
func (s *Service) Treemap(ctx context.Context, snapshot time.Time, filter domain.TransactionFilter) (*Treemap, error) {
	segmentation, err := s.segmenter.Compute(ctx, snapshot, filter)
	if err != nil {
		return nil, err
	}

	type tile struct {
		revenue decimal.Decimal
		scores  []float64
	}
	tiles := make(map[rfm.SegmentName]*tile)
	for _, c := range segmentation.Customers {
		t, ok := tiles[c.Segment]
		if !ok {
			t = &tile{revenue: decimal.Zero}
			tiles[c.Segment] = t
		}
		t.revenue = t.revenue.Add(c.Monetary)
		t.scores = append(t.scores, float64(c.Label.Recency+c.Label.Frequency+c.Label.Monetary)/3)
	}

	out := &Treemap{
		ReferenceDate:  snapshot,
		TotalCustomers: len(segmentation.Customers),
		Items:          []TreemapItem{},
	}
	for _, name := range rfm.SegmentOrder {
		t, ok := tiles[name]
		if !ok {
			continue
		}
		score := (formulas.Mean(t.scores)-1)*2 + 1
		out.Items = append(out.Items, TreemapItem{
			Segment:   name,
			Revenue:   t.revenue.Round(2),
			Score:     formulas.RoundTo(math.Max(1, math.Min(5, score)), 1),
			Customers: len(t.scores),
		})
	}
	return out, nil
}

// RevenueTrends sums the sales of segmented customers per period and segment.
// Periods without any such sale are omitted.
func (s *Service) RevenueTrends(ctx context.Context, snapshot time.Time, granularity Granularity, filter domain.TransactionFilter) (*Trends, error) {
	segmentation, err := s.segmenter.Compute(ctx, snapshot, filter)
	if err != nil {
		return nil, err
	}
	out := &Trends{ReferenceDate: snapshot, Granularity: granularity, Points: []TrendPoint{}}

	segmentOf := segmentIndex(segmentation)
	if len(segmentOf) == 0 {
		return out, nil
	}

	records, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	periods := make(map[time.Time]map[rfm.SegmentName]decimal.Decimal)
	for _, r := range records {
		if !r.IsSale() {
			continue
		}
		seg, ok := segmentOf[r.Customer()]
		if !ok {
			continue
		}
		start := granularity.PeriodStart(r.InvoiceDate)
		revenue, ok := periods[start]
		if !ok {
			revenue = make(map[rfm.SegmentName]decimal.Decimal, len(rfm.SegmentOrder))
			for _, name := range rfm.SegmentOrder {
				revenue[name] = decimal.Zero
			}
			periods[start] = revenue
		}
		revenue[seg] = revenue[seg].Add(r.LineTotal())
	}

	starts := make([]time.Time, 0, len(periods))
	for start := range periods {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	for _, start := range starts {
		out.Points = append(out.Points, TrendPoint{
			Period:  start.Format(utils.DateLayout),
			Revenue: periods[start],
		})
	}

	s.log.Debug().
		Str("granularity", string(granularity)).
		Int("periods", len(out.Points)).
		Msg("Computed revenue trends")

	return out, nil
}

func segmentIndex(segmentation *rfm.Result) map[string]rfm.SegmentName {
	out := make(map[string]rfm.SegmentName, len(segmentation.Customers))
	for _, c := range segmentation.Customers {
		out[c.CustomerID] = c.Segment
	}
	return out
}
