// Package handlers provides HTTP handlers for customer segmentation.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/internal/modules/rfm"
	"github.com/aristath/elasticom/internal/utils"
)

// Segmenter is the RFM service surface the handlers need
type Segmenter interface {
	Compute(ctx context.Context, snapshot time.Time, filter domain.TransactionFilter) (*rfm.Result, error)
	Summary(ctx context.Context, snapshot time.Time, filter domain.TransactionFilter) (*rfm.Summary, error)
	CustomersInSegment(ctx context.Context, segment string, snapshot time.Time, filter domain.TransactionFilter) ([]string, error)
}

// Handler handles RFM HTTP requests
type Handler struct {
	service Segmenter
	clock   domain.Clock
	log     zerolog.Logger
}

// NewHandler creates a new RFM handler. clock supplies the default
// reference date; nil means time.Now.
func NewHandler(service Segmenter, clock domain.Clock, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		clock:   clock,
		log:     log.With().Str("handler", "rfm").Logger(),
	}
}

func (h *Handler) parseScope(r *http.Request) (time.Time, domain.TransactionFilter, error) {
	q := r.URL.Query()
	snapshot, err := utils.ParseReferenceDate(q, h.clock)
	if err != nil {
		return time.Time{}, domain.TransactionFilter{}, err
	}
	filter, err := utils.ParseTransactionFilter(q)
	return snapshot, filter, err
}

// HandleSegments handles GET /api/rfm
func (h *Handler) HandleSegments(w http.ResponseWriter, r *http.Request) {
	snapshot, filter, err := h.parseScope(r)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	result, err := h.service.Compute(r.Context(), snapshot, filter)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	utils.WriteData(w, http.StatusOK, result, h.log)
}

// HandleSummary handles GET /api/rfm/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	snapshot, filter, err := h.parseScope(r)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	summary, err := h.service.Summary(r.Context(), snapshot, filter)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	utils.WriteData(w, http.StatusOK, summary, h.log)
}

// HandleSegmentCustomers handles GET /api/rfm/segments/{segment}.
// segment is a code (RH_FM_ML) or a segment name; "Other" is rejected with 400.
func (h *Handler) HandleSegmentCustomers(w http.ResponseWriter, r *http.Request) {
	segment := chi.URLParam(r, "segment")

	snapshot, filter, err := h.parseScope(r)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	ids, err := h.service.CustomersInSegment(r.Context(), segment, snapshot, filter)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteData(w, http.StatusOK, map[string]interface{}{
		"segment":        segment,
		"reference_date": snapshot.Format(utils.DateLayout),
		"customer_ids":   ids,
		"count":          len(ids),
	}, h.log)
}
