package elasticity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/internal/metrics"
)

// ItemElasticity is the fit for one stock item over its daily series
type ItemElasticity struct {
	Result
	StockCode     string  `json:"stock_code"`
	Description   string  `json:"description,omitempty"`
	TotalQuantity float64 `json:"total_quantity"`
	Days          int     `json:"days"`
}

// SkippedItem is an item in scope that could not be fitted
type SkippedItem struct {
	StockCode string `json:"stock_code"`
	Kind      string `json:"kind"`
	Reason    string `json:"reason"`
}

// ReportMeta describes the scope of a Report
type ReportMeta struct {
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	TotalProducts    int        `json:"total_products"`
	ReturnedProducts int        `json:"returned_products"`
}

// Report holds per-item fits. Items that failed are listed in Skipped with
// their error kind rather than dropped.
type Report struct {
	Results []ItemElasticity `json:"results"`
	Skipped []SkippedItem    `json:"skipped"`
	Meta    ReportMeta       `json:"meta"`
}

// Find returns the fit for stockCode, if present
func (r *Report) Find(stockCode string) (*ItemElasticity, bool) {
	for i := range r.Results {
		if r.Results[i].StockCode == stockCode {
			return &r.Results[i], true
		}
	}
	return nil, false
}

// Service runs the estimator over transactions fetched from the store
type Service struct {
	store   domain.TransactionQuerier
	options []Option
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewService creates a new elasticity service.
// opts are applied to every fit (e.g. WithOutlierFilter). m may be nil.
func NewService(store domain.TransactionQuerier, opts []Option, m *metrics.Metrics, log zerolog.Logger) *Service {
	return &Service{
		store:   store,
		options: opts,
		metrics: m,
		log:     log.With().Str("service", "elasticity").Logger(),
	}
}

// EstimateItems fits every stock item in the filter scope
func (s *Service) EstimateItems(ctx context.Context, filter domain.TransactionFilter) (*Report, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveEstimationBatch(time.Since(start)) }()

	records, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	report, err := s.estimate(ctx, records)
	if err != nil {
		return nil, err
	}
	report.Meta.StartDate, report.Meta.EndDate = dateRange(records, filter)

	s.log.Debug().
		Int("records", len(records)).
		Int("results", len(report.Results)).
		Int("skipped", len(report.Skipped)).
		Dur("duration", time.Since(start)).
		Msg("Estimated elasticity")

	return report, nil
}

// EstimateItem fits a single stock item. Unlike EstimateItems, a failed fit
// is returned as the error. An item with no transactions in scope yields
// domain.ErrNotFound.
func (s *Service) EstimateItem(ctx context.Context, stockCode string, filter domain.TransactionFilter) (*ItemElasticity, error) {
	filter.StockCodes = []string{stockCode}

	records, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("stock item %q: %w", stockCode, domain.ErrNotFound)
	}

	series := BuildDailySeries(records)
	if len(series) == 0 {
		s.metrics.ObserveEstimation("insufficient_data")
		return nil, &domain.InsufficientDataError{Reason: "no days with positive sales"}
	}
	return s.fitSeries(series[0])
}

// EstimateForCustomers fits every item using only the given customers'
// transactions. An empty customer list yields an empty report.
func (s *Service) EstimateForCustomers(ctx context.Context, customerIDs []string, filter domain.TransactionFilter) (*Report, error) {
	if len(customerIDs) == 0 {
		return &Report{Results: []ItemElasticity{}, Skipped: []SkippedItem{}}, nil
	}
	filter.CustomerIDs = customerIDs
	return s.EstimateItems(ctx, filter)
}

func (s *Service) estimate(ctx context.Context, records []domain.TransactionRecord) (*Report, error) {
	report := &Report{
		Results: []ItemElasticity{},
		Skipped: []SkippedItem{},
	}

	series := BuildDailySeries(records)
	fitted := make(map[string]struct{}, len(series))

	for _, item := range series {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fitted[item.StockCode] = struct{}{}

		result, err := s.fitSeries(item)
		if err != nil {
			if !domain.IsInsufficientData(err) && !domain.IsNumerical(err) {
				return nil, fmt.Errorf("failed to estimate %s: %w", item.StockCode, err)
			}
			report.Skipped = append(report.Skipped, SkippedItem{
				StockCode: item.StockCode,
				Kind:      domain.ErrorKind(err),
				Reason:    err.Error(),
			})
			continue
		}
		report.Results = append(report.Results, *result)
	}

	// Items whose every day netted out to no sales never formed a series
	for _, code := range distinctStockCodes(records) {
		if _, ok := fitted[code]; ok {
			continue
		}
		s.metrics.ObserveEstimation("insufficient_data")
		report.Skipped = append(report.Skipped, SkippedItem{
			StockCode: code,
			Kind:      "insufficient_data",
			Reason:    "no days with positive sales",
		})
	}
	sort.Slice(report.Skipped, func(i, j int) bool {
		return report.Skipped[i].StockCode < report.Skipped[j].StockCode
	})

	report.Meta.TotalProducts = len(report.Results) + len(report.Skipped)
	report.Meta.ReturnedProducts = len(report.Results)
	return report, nil
}

func (s *Service) fitSeries(series Series) (*ItemElasticity, error) {
	result, err := Estimate(series.Prices(), series.Quantities(), s.options...)
	if err != nil {
		s.metrics.ObserveEstimation(domain.ErrorKind(err))
		return nil, err
	}
	s.metrics.ObserveEstimation("ok")

	return &ItemElasticity{
		Result:        *result,
		StockCode:     series.StockCode,
		Description:   series.Description,
		TotalQuantity: series.TotalQuantity(),
		Days:          len(series.Points),
	}, nil
}

func distinctStockCodes(records []domain.TransactionRecord) []string {
	seen := make(map[string]struct{})
	codes := make([]string, 0)
	for _, r := range records {
		if _, ok := seen[r.StockCode]; ok {
			continue
		}
		seen[r.StockCode] = struct{}{}
		codes = append(codes, r.StockCode)
	}
	sort.Strings(codes)
	return codes
}

// dateRange reports the filter bounds, falling back to the observed span
func dateRange(records []domain.TransactionRecord, filter domain.TransactionFilter) (*time.Time, *time.Time) {
	start, end := filter.StartDate, filter.EndDate
	if (start != nil && end != nil) || len(records) == 0 {
		return start, end
	}

	minDate, maxDate := records[0].InvoiceDate, records[0].InvoiceDate
	for _, r := range records[1:] {
		if r.InvoiceDate.Before(minDate) {
			minDate = r.InvoiceDate
		}
		if r.InvoiceDate.After(maxDate) {
			maxDate = r.InvoiceDate
		}
	}
	if start == nil {
		start = &minDate
	}
	if end == nil {
		end = &maxDate
	}
	return start, end
}
