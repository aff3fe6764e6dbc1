package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/internal/metrics"
	"github.com/aristath/elasticom/internal/modules/elasticity"
	"github.com/aristath/elasticom/internal/modules/rfm"
	"github.com/aristath/elasticom/pkg/formulas"
)

// Estimator is the elasticity service surface the simulation service needs
type Estimator interface {
	EstimateItem(ctx context.Context, stockCode string, filter domain.TransactionFilter) (*elasticity.ItemElasticity, error)
	EstimateForCustomers(ctx context.Context, customerIDs []string, filter domain.TransactionFilter) (*elasticity.Report, error)
}

// Segments groups customers by RFM segment
type Segments interface {
	CustomersBySegment(ctx context.Context, snapshot time.Time, filter domain.TransactionFilter) (map[rfm.SegmentName][]string, error)
}

// Store persists saved scenarios
type Store interface {
	Create(ctx context.Context, s SavedSimulation) (*SavedSimulation, error)
	GetByID(ctx context.Context, id string) (*SavedSimulation, error)
	List(ctx context.Context, limit int) ([]SavedSimulation, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, id string, u Update) (*SavedSimulation, error)
	Delete(ctx context.Context, id string) error
}

// ItemResult is a single-item simulation with the estimate it was based on
type ItemResult struct {
	Result
	StockCode   string  `json:"stock_code"`
	Description string  `json:"description,omitempty"`
	RSquared    float64 `json:"r_squared"`
	SampleSize  int     `json:"sample_size"`
}

// ExcludedItem is a requested item that had no sales to build a baseline from
type ExcludedItem struct {
	StockCode string `json:"stock_code"`
	Reason    string `json:"reason"`
}

// PortfolioReport is a portfolio simulation plus the items left out of it
type PortfolioReport struct {
	*PortfolioResult
	Excluded []ExcludedItem `json:"excluded"`
}

// SegmentMetric is the projected outcome of a scenario for one segment
type SegmentMetric struct {
	Segment               rfm.SegmentName `json:"segment"`
	Customers             int             `json:"customers"`
	Buyers                int             `json:"buyers"` // Segment customers who bought the item
	Elasticity            float64         `json:"elasticity"`
	FallbackUsed          bool            `json:"fallback_used"`
	FallbackReason        string          `json:"fallback_reason,omitempty"`
	BaselineQuantity      int64           `json:"baseline_quantity"`
	BaselineRevenue       decimal.Decimal `json:"baseline_revenue"`
	ProjectedQuantity     float64         `json:"projected_quantity"`
	ProjectedRevenue      float64         `json:"projected_revenue"`
	QuantityChangePercent float64         `json:"quantity_change_percent"`
	RevenueChangePercent  float64         `json:"revenue_change_percent"`
	Implausible           bool            `json:"implausible"`
}

// SegmentMetrics is the per-segment breakdown of a saved scenario
type SegmentMetrics struct {
	Simulation         SavedSimulation `json:"simulation"`
	ReferenceDate      time.Time       `json:"reference_date"`
	PriceChangePercent float64         `json:"price_change_percent"`
	ItemElasticity     float64         `json:"item_elasticity"`
	Segments           []SegmentMetric `json:"segments"`
}

// CurvePoint is one step of a price sweep
type CurvePoint struct {
	PriceChangePercent int     `json:"price_change_percent"`
	NewPrice           float64 `json:"new_price"`
	ProjectedQuantity  float64 `json:"projected_quantity"`
	ProjectedRevenue   float64 `json:"projected_revenue"`
	RevenueDelta       float64 `json:"revenue_delta"`
	Implausible        bool    `json:"implausible"`
}

// Curve is a saved scenario evaluated over its whole price range
type Curve struct {
	Simulation SavedSimulation `json:"simulation"`
	Elasticity float64         `json:"elasticity"`
	Points     []CurvePoint    `json:"points"`
	// Best is the plausible point with the highest projected revenue
	Best *CurvePoint `json:"best,omitempty"`
}

// Service runs simulations against live estimates and manages saved scenarios
type Service struct {
	store        Store
	estimator    Estimator
	segments     Segments
	transactions domain.TransactionQuerier
	options      []elasticity.Option
	metrics      *metrics.Metrics
	log          zerolog.Logger
}

// NewService creates a new simulation service. opts are the estimator options
// used for portfolio fits. m may be nil.
func NewService(
	store Store,
	estimator Estimator,
	segments Segments,
	transactions domain.TransactionQuerier,
	opts []elasticity.Option,
	m *metrics.Metrics,
	log zerolog.Logger,
) *Service {
	return &Service{
		store:        store,
		estimator:    estimator,
		segments:     segments,
		transactions: transactions,
		options:      opts,
		metrics:      m,
		log:          log.With().Str("service", "simulation").Logger(),
	}
}

// SimulateItem projects a price change for one item. The baseline is the
// item's geometric mean daily price and quantity over the filter scope.
func (s *Service) SimulateItem(ctx context.Context, stockCode string, change PriceChange, filter domain.TransactionFilter) (*ItemResult, error) {
	item, err := s.estimator.EstimateItem(ctx, stockCode, filter)
	if err != nil {
		return nil, err
	}

	res, err := Simulate(Input{
		BaselinePrice:    item.MeanPrice,
		BaselineQuantity: item.MeanQuantity,
		Elasticity:       item.Coefficient,
		Change:           change,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveSimulation(res.Implausible, false)

	return &ItemResult{
		Result:      res,
		StockCode:   item.StockCode,
		Description: item.Description,
		RSquared:    item.RSquared,
		SampleSize:  item.SampleSize,
	}, nil
}

// SimulatePortfolio projects the same price change across several items.
// Items without a usable estimate fall back to the portfolio average.
func (s *Service) SimulatePortfolio(ctx context.Context, stockCodes []string, change PriceChange, filter domain.TransactionFilter) (*PortfolioReport, error) {
	if len(stockCodes) == 0 {
		return nil, &domain.InvalidInputError{Field: "stock_codes", Message: "at least one item is required"}
	}

	filter.StockCodes = stockCodes
	records, err := s.transactions.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	byCode := make(map[string]elasticity.Series)
	for _, series := range elasticity.BuildDailySeries(records) {
		byCode[series.StockCode] = series
	}

	report := &PortfolioReport{Excluded: []ExcludedItem{}}
	items := make([]PortfolioItem, 0, len(stockCodes))
	seen := make(map[string]struct{}, len(stockCodes))
	for _, code := range stockCodes {
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}

		series, ok := byCode[code]
		if !ok {
			report.Excluded = append(report.Excluded, ExcludedItem{StockCode: code, Reason: "no days with positive sales"})
			continue
		}
		items = append(items, PortfolioItem{
			StockCode:        code,
			BaselinePrice:    formulas.GeometricMean(series.Prices()),
			BaselineQuantity: formulas.GeometricMean(series.Quantities()),
		})
	}
	if len(items) == 0 {
		return nil, &domain.InsufficientDataError{Reason: "no requested item has sales in scope"}
	}

	lookup := func(code string) (float64, error) {
		series := byCode[code]
		result, err := elasticity.Estimate(series.Prices(), series.Quantities(), s.options...)
		if err != nil {
			return 0, err
		}
		return result.Coefficient, nil
	}

	result, err := SimulatePortfolio(items, lookup, change)
	if err != nil {
		return nil, err
	}
	for _, item := range result.Items {
		s.metrics.ObserveSimulation(item.Implausible, item.FallbackUsed)
	}
	report.PortfolioResult = result

	s.log.Debug().
		Int("items", len(result.Items)).
		Int("fallback", result.FallbackItems).
		Int("excluded", len(report.Excluded)).
		Float64("revenue_delta", result.RevenueDelta).
		Msg("Simulated portfolio")

	return report, nil
}

// Save stores a new scenario
func (s *Service) Save(ctx context.Context, sim SavedSimulation) (*SavedSimulation, error) {
	return s.store.Create(ctx, sim)
}

// Get returns a saved scenario
func (s *Service) Get(ctx context.Context, id string) (*SavedSimulation, error) {
	return s.store.GetByID(ctx, id)
}

// List returns saved scenarios newest first, with the total count
func (s *Service) List(ctx context.Context, limit int) ([]SavedSimulation, int, error) {
	sims, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return sims, total, nil
}

// Update changes a saved scenario
func (s *Service) Update(ctx context.Context, id string, u Update) (*SavedSimulation, error) {
	return s.store.Update(ctx, id, u)
}

// Delete removes a saved scenario
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// SegmentMetrics evaluates a saved scenario per RFM segment at the midpoint
// of its price range. Each segment uses the elasticity fitted on its own
// customers; when that fit is not possible the item's overall elasticity is
// used and the segment is flagged.
func (s *Service) SegmentMetrics(ctx context.Context, id string, snapshot time.Time) (*SegmentMetrics, error) {
	sim, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	overall, err := s.estimator.EstimateItem(ctx, sim.StockCode, domain.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate %s: %w", sim.StockCode, err)
	}

	groups, err := s.segments.CustomersBySegment(ctx, snapshot, domain.TransactionFilter{})
	if err != nil {
		return nil, err
	}

	records, err := s.transactions.Query(ctx, domain.TransactionFilter{StockCodes: []string{sim.StockCode}})
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	purchases := purchasesByCustomer(records)

	pct := sim.PriceRange.Midpoint()
	out := &SegmentMetrics{
		Simulation:         *sim,
		ReferenceDate:      snapshot,
		PriceChangePercent: pct,
		ItemElasticity:     overall.Coefficient,
		Segments:           make([]SegmentMetric, 0, len(rfm.SegmentOrder)),
	}

	itemFilter := domain.TransactionFilter{StockCodes: []string{sim.StockCode}}
	for _, name := range rfm.SegmentOrder {
		customers := groups[name]
		metric := SegmentMetric{
			Segment:         name,
			Customers:       len(customers),
			Elasticity:      overall.Coefficient,
			BaselineRevenue: decimal.Zero,
		}

		for _, c := range customers {
			p, ok := purchases[c]
			if !ok {
				continue
			}
			metric.Buyers++
			metric.BaselineQuantity += p.quantity
			metric.BaselineRevenue = metric.BaselineRevenue.Add(p.revenue)
		}

		metric.Elasticity, metric.FallbackReason, err = s.segmentElasticity(ctx, customers, sim.StockCode, itemFilter)
		if err != nil {
			return nil, err
		}
		if metric.FallbackReason != "" {
			metric.Elasticity = overall.Coefficient
			metric.FallbackUsed = true
		}

		if metric.BaselineQuantity > 0 && metric.BaselineRevenue.IsPositive() {
			quantity := float64(metric.BaselineQuantity)
			res, err := Simulate(Input{
				BaselinePrice:    metric.BaselineRevenue.InexactFloat64() / quantity,
				BaselineQuantity: quantity,
				Elasticity:       metric.Elasticity,
				Change:           PercentChange(pct),
			})
			if err != nil {
				return nil, err
			}
			metric.ProjectedQuantity = res.ProjectedQuantity
			metric.ProjectedRevenue = res.ProjectedRevenue
			metric.QuantityChangePercent = res.QuantityChangePercent
			metric.RevenueChangePercent = res.RevenueChangePercent
			metric.Implausible = res.Implausible
			s.metrics.ObserveSimulation(res.Implausible, metric.FallbackUsed)
		}

		out.Segments = append(out.Segments, metric)
	}
	return out, nil
}

// segmentElasticity fits the item on the given customers only. A non-empty
// reason means no segment-level estimate exists.
func (s *Service) segmentElasticity(ctx context.Context, customers []string, stockCode string, filter domain.TransactionFilter) (float64, string, error) {
	if len(customers) == 0 {
		return 0, "segment has no customers", nil
	}

	report, err := s.estimator.EstimateForCustomers(ctx, customers, filter)
	if err != nil {
		return 0, "", fmt.Errorf("failed to estimate segment elasticity: %w", err)
	}
	if item, ok := report.Find(stockCode); ok {
		return item.Coefficient, "", nil
	}
	for _, skipped := range report.Skipped {
		if skipped.StockCode == stockCode {
			return 0, skipped.Reason, nil
		}
	}
	return 0, "segment customers never bought this item", nil
}

// Curve evaluates a saved scenario for every step of its price range
func (s *Service) Curve(ctx context.Context, id string, filter domain.TransactionFilter) (*Curve, error) {
	sim, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	item, err := s.estimator.EstimateItem(ctx, sim.StockCode, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate %s: %w", sim.StockCode, err)
	}

	curve := &Curve{
		Simulation: *sim,
		Elasticity: item.Coefficient,
		Points:     make([]CurvePoint, 0),
	}
	for _, pct := range sim.PriceRange.Points() {
		res, err := Simulate(Input{
			BaselinePrice:    item.MeanPrice,
			BaselineQuantity: item.MeanQuantity,
			Elasticity:       item.Coefficient,
			Change:           PercentChange(float64(pct)),
		})
		if err != nil {
			return nil, err
		}
		curve.Points = append(curve.Points, CurvePoint{
			PriceChangePercent: pct,
			NewPrice:           res.NewPrice,
			ProjectedQuantity:  res.ProjectedQuantity,
			ProjectedRevenue:   res.ProjectedRevenue,
			RevenueDelta:       res.RevenueDelta,
			Implausible:        res.Implausible,
		})
	}

	for i := range curve.Points {
		p := &curve.Points[i]
		if p.Implausible {
			continue
		}
		if curve.Best == nil || p.ProjectedRevenue > curve.Best.ProjectedRevenue {
			curve.Best = p
		}
	}
	return curve, nil
}

type purchase struct {
	quantity int64
	revenue  decimal.Decimal
}

// purchasesByCustomer sums each customer's quantity and revenue over all
// rows, keeping customers whose net quantity is positive
func purchasesByCustomer(records []domain.TransactionRecord) map[string]purchase {
	sums := make(map[string]purchase)
	for _, r := range records {
		customer := r.Customer()
		if customer == "" {
			continue
		}
		p := sums[customer]
		p.quantity += r.Quantity
		p.revenue = p.revenue.Add(r.LineTotal())
		sums[customer] = p
	}
	for customer, p := range sums {
		if p.quantity <= 0 {
			delete(sums, customer)
		}
	}
	return sums
}
