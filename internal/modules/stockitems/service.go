// Package stockitems searches stock items and reports their price response,
// purchase frequency and the segment that buys them most.
package stockitems

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/internal/modules/elasticity"
	"github.com/aristath/elasticom/internal/modules/rfm"
)

// Search limits
const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// NoSegment marks an item none of whose buyers could be segmented
const NoSegment rfm.SegmentName = "Unknown"

// Estimator is the elasticity service surface the stock item service needs
type Estimator interface {
	EstimateItems(ctx context.Context, filter domain.TransactionFilter) (*elasticity.Report, error)
	EstimateItem(ctx context.Context, stockCode string, filter domain.TransactionFilter) (*elasticity.ItemElasticity, error)
}

// Segmenter computes the customer segmentation
type Segmenter interface {
	Compute(ctx context.Context, snapshot time.Time, filter domain.TransactionFilter) (*rfm.Result, error)
}

// SearchParams scopes a search. An empty Query matches every item.
type SearchParams struct {
	Query    string
	Limit    int
	Snapshot time.Time
	Filter   domain.TransactionFilter
}

// Item is one row of a search result
type Item struct {
	StockCode         string          `json:"stock_code"`
	Description       string          `json:"description,omitempty"`
	Elasticity        float64         `json:"elasticity"`
	Fitted            bool            `json:"fitted"`
	FitError          string          `json:"fit_error,omitempty"` // Error kind when Fitted is false
	RevenuePotential  float64         `json:"revenue_potential"`   // -elasticity; positive when a price cut grows revenue
	PurchaseFrequency int             `json:"purchase_frequency"`  // Distinct invoices with a sale
	Segment           rfm.SegmentName `json:"segment"`
}

// SearchResult is a page of matching items ordered by stock code
type SearchResult struct {
	Total         int       `json:"total"`
	ReferenceDate time.Time `json:"reference_date"`
	Items         []Item    `json:"items"`
}

// Detail is the full view of one stock item. AvgPrice is the fit's geometric
// mean daily price, or the plain mean unit price when no fit exists. Totals always
// come from the transactions.
type Detail struct {
	StockCode     string          `json:"stock_code"`
	Description   string          `json:"description,omitempty"`
	Fitted        bool            `json:"fitted"`
	FitError      string          `json:"fit_error,omitempty"`
	Elasticity    float64         `json:"elasticity"`
	RSquared      float64         `json:"r_squared"`
	SampleSize    int             `json:"sample_size"`
	AvgPrice      float64         `json:"avg_price"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

// Service answers stock item queries
type Service struct {
	store     domain.TransactionQuerier
	estimator Estimator
	segmenter Segmenter
	log       zerolog.Logger
}

// NewService creates a new stock item service
func NewService(store domain.TransactionQuerier, estimator Estimator, segmenter Segmenter, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		estimator: estimator,
		segmenter: segmenter,
		log:       log.With().Str("service", "stockitems").Logger(),
	}
}

type itemStats struct {
	description string
	invoices    map[string]struct{}
	// rows per buying customer
	buyers map[string]int
}

// Search returns items whose stock code or description contains
// params.Query, case-insensitively.
func (s *Service) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	limit := params.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return nil, &domain.InvalidInputError{
			Field:   "limit",
			Message: fmt.Sprintf("must be between 1 and %d", MaxLimit),
		}
	}

	records, err := s.store.Query(ctx, params.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(params.Query))
	stats := make(map[string]*itemStats)
	for _, r := range records {
		st, ok := stats[r.StockCode]
		if !ok {
			st = &itemStats{invoices: make(map[string]struct{}), buyers: make(map[string]int)}
			stats[r.StockCode] = st
		}
		if r.Description != nil && *r.Description > st.description {
			st.description = *r.Description
		}
		if !r.IsSale() {
			continue
		}
		st.invoices[r.InvoiceNo] = struct{}{}
		if id := r.Customer(); id != "" {
			st.buyers[id]++
		}
	}

	codes := make([]string, 0, len(stats))
	for code, st := range stats {
		if needle == "" || strings.Contains(strings.ToLower(code), needle) ||
			strings.Contains(strings.ToLower(st.description), needle) {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)

	result := &SearchResult{
		Total:         len(codes),
		ReferenceDate: params.Snapshot,
		Items:         []Item{},
	}
	if len(codes) > limit {
		codes = codes[:limit]
	}
	if len(codes) == 0 {
		return result, nil
	}

	scope := params.Filter
	scope.StockCodes = codes
	report, err := s.estimator.EstimateItems(ctx, scope)
	if err != nil {
		return nil, err
	}

	segmentation, err := s.segmenter.Compute(ctx, params.Snapshot, params.Filter)
	if err != nil {
		return nil, err
	}
	segmentOf := make(map[string]rfm.SegmentName, len(segmentation.Customers))
	for _, c := range segmentation.Customers {
		segmentOf[c.CustomerID] = c.Segment
	}

	skipped := make(map[string]string, len(report.Skipped))
	for _, sk := range report.Skipped {
		skipped[sk.StockCode] = sk.Kind
	}

	for _, code := range codes {
		st := stats[code]
		item := Item{
			StockCode:         code,
			Description:       st.description,
			PurchaseFrequency: len(st.invoices),
			Segment:           primarySegment(st.buyers, segmentOf),
		}
		if fit, ok := report.Find(code); ok {
			item.Fitted = true
			item.Elasticity = fit.Coefficient
			item.RevenuePotential = -fit.Coefficient
		} else {
			item.FitError = skipped[code]
		}
		result.Items = append(result.Items, item)
	}

	s.log.Debug().
		Str("query", params.Query).
		Int("total", result.Total).
		Int("returned", len(result.Items)).
		Msg("Searched stock items")

	return result, nil
}

// primarySegment picks the segment accounting for most of an item's sale
// rows. Ties go to the more valuable segment.
func primarySegment(buyers map[string]int, segmentOf map[string]rfm.SegmentName) rfm.SegmentName {
	counts := make(map[rfm.SegmentName]int)
	for id, rows := range buyers {
		if seg, ok := segmentOf[id]; ok {
			counts[seg] += rows
		}
	}

	best, bestCount := NoSegment, 0
	for _, seg := range append(append([]rfm.SegmentName{}, rfm.SegmentOrder...), rfm.Other) {
		if counts[seg] > bestCount {
			best, bestCount = seg, counts[seg]
		}
	}
	return best
}

// Get returns the detail view of stockCode. An item with no transactions in
// scope yields domain.ErrNotFound. An item that cannot be fitted is still
// returned, with Fitted false and the figures taken from its sales.
func (s *Service) Get(ctx context.Context, stockCode string, filter domain.TransactionFilter) (*Detail, error) {
	filter.StockCodes = []string{stockCode}
	records, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("stock item %q: %w", stockCode, domain.ErrNotFound)
	}

	detail := &Detail{StockCode: stockCode, TotalRevenue: decimal.Zero}
	priceSum := decimal.Zero
	for _, r := range records {
		if r.Description != nil && *r.Description > detail.Description {
			detail.Description = *r.Description
		}
		priceSum = priceSum.Add(r.UnitPrice)
		detail.TotalQuantity += r.Quantity
		detail.TotalRevenue = detail.TotalRevenue.Add(r.LineTotal())
	}
	detail.AvgPrice = priceSum.Div(decimal.NewFromInt(int64(len(records)))).InexactFloat64()

	fit, err := s.estimator.EstimateItem(ctx, stockCode, filter)
	switch {
	case err == nil:
		detail.Fitted = true
		detail.Elasticity = fit.Coefficient
		detail.RSquared = fit.RSquared
		detail.SampleSize = fit.SampleSize
		detail.AvgPrice = fit.MeanPrice
	case domain.IsInsufficientData(err) || domain.IsNumerical(err):
		detail.FitError = domain.ErrorKind(err)
	default:
		return nil, err
	}
	return detail, nil
}
