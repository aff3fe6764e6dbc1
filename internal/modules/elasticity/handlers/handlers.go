// Package handlers provides HTTP handlers for elasticity estimates.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/internal/modules/elasticity"
	"github.com/aristath/elasticom/internal/utils"
)

// Estimator is the elasticity service surface the handlers need
type Estimator interface {
	EstimateItems(ctx context.Context, filter domain.TransactionFilter) (*elasticity.Report, error)
	EstimateItem(ctx context.Context, stockCode string, filter domain.TransactionFilter) (*elasticity.ItemElasticity, error)
	EstimateForCustomers(ctx context.Context, customerIDs []string, filter domain.TransactionFilter) (*elasticity.Report, error)
}

// SegmentResolver resolves a segment code or name to customer ids
type SegmentResolver interface {
	CustomersInSegment(ctx context.Context, segment string, snapshot time.Time, filter domain.TransactionFilter) ([]string, error)
}

// Handler handles elasticity HTTP requests
type Handler struct {
	service  Estimator
	segments SegmentResolver
	clock    domain.Clock
	log      zerolog.Logger
}

// NewHandler creates a new elasticity handler
func NewHandler(service Estimator, segments SegmentResolver, clock domain.Clock, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		segments: segments,
		clock:    clock,
		log:      log.With().Str("handler", "elasticity").Logger(),
	}
}

// HandleList handles GET /api/elasticity
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := utils.ParseTransactionFilter(r.URL.Query())
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	report, err := h.service.EstimateItems(r.Context(), filter)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	utils.WriteData(w, http.StatusOK, report, h.log)
}

// HandleGet handles GET /api/elasticity/{stockCode}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	stockCode := chi.URLParam(r, "stockCode")

	filter, err := utils.ParseTransactionFilter(r.URL.Query())
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	item, err := h.service.EstimateItem(r.Context(), stockCode, filter)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	utils.WriteData(w, http.StatusOK, item, h.log)
}

// HandleSegment handles GET /api/elasticity/segments/{segment}.
// The segment is resolved as of reference_date, then every item is fitted on
// that segment's transactions only.
func (h *Handler) HandleSegment(w http.ResponseWriter, r *http.Request) {
	segment := chi.URLParam(r, "segment")
	q := r.URL.Query()

	snapshot, err := utils.ParseReferenceDate(q, h.clock)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	filter, err := utils.ParseTransactionFilter(q)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	// Segment membership is computed over all items
	scope := filter
	scope.StockCodes = nil
	customers, err := h.segments.CustomersInSegment(r.Context(), segment, snapshot, scope)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	report, err := h.service.EstimateForCustomers(r.Context(), customers, filter)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteData(w, http.StatusOK, map[string]interface{}{
		"segment":        segment,
		"reference_date": snapshot.Format(utils.DateLayout),
		"customers":      len(customers),
		"report":         report,
	}, h.log)
}
