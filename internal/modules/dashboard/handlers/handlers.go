// Package handlers provides HTTP handlers for the dashboard views.
package handlers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/internal/modules/dashboard"
	"github.com/aristath/elasticom/internal/utils"
)

// Dashboard is the dashboard service surface the handlers need
type Dashboard interface {
	KPIs(ctx context.Context, snapshot time.Time, filter domain.TransactionFilter) (*dashboard.KPIs, error)
	Treemap(ctx context.Context, snapshot time.Time, filter domain.TransactionFilter) (*dashboard.Treemap, error)
	RevenueTrends(ctx context.Context, snapshot time.Time, granularity dashboard.Granularity, filter domain.TransactionFilter) (*dashboard.Trends, error)
}

// Handler handles dashboard HTTP requests
type Handler struct {
	service Dashboard
	clock   domain.Clock
	log     zerolog.Logger
}

// NewHandler creates a new dashboard handler
func NewHandler(service Dashboard, clock domain.Clock, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		clock:   clock,
		log:     log.With().Str("handler", "dashboard").Logger(),
	}
}

func (h *Handler) parseScope(q url.Values) (time.Time, domain.TransactionFilter, error) {
	snapshot, err := utils.ParseReferenceDate(q, h.clock)
	if err != nil {
		return time.Time{}, domain.TransactionFilter{}, err
	}
	filter, err := utils.ParseTransactionFilter(q)
	return snapshot, filter, err
}

// HandleKPIs handles GET /api/dashboard/kpis
func (h *Handler) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	snapshot, filter, err := h.parseScope(r.URL.Query())
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	kpis, err := h.service.KPIs(r.Context(), snapshot, filter)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	utils.WriteData(w, http.StatusOK, kpis, h.log)
}

// HandleSegments handles GET /api/dashboard/segments
func (h *Handler) HandleSegments(w http.ResponseWriter, r *http.Request) {
	snapshot, filter, err := h.parseScope(r.URL.Query())
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	treemap, err := h.service.Treemap(r.Context(), snapshot, filter)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	utils.WriteData(w, http.StatusOK, treemap, h.log)
}

// HandleTrends handles GET /api/dashboard/trends?granularity=week
func (h *Handler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	granularity, err := dashboard.ParseGranularity(q.Get("granularity"))
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	snapshot, filter, err := h.parseScope(q)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	trends, err := h.service.RevenueTrends(r.Context(), snapshot, granularity, filter)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	utils.WriteData(w, http.StatusOK, trends, h.log)
}
