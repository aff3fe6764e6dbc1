// Package handlers provides HTTP handlers for stock item search.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/internal/modules/stockitems"
	"github.com/aristath/elasticom/internal/utils"
)

// Catalogue is the stock item service surface the handlers need
type Catalogue interface {
	Search(ctx context.Context, params stockitems.SearchParams) (*stockitems.SearchResult, error)
	Get(ctx context.Context, stockCode string, filter domain.TransactionFilter) (*stockitems.Detail, error)
}

// Handler handles stock item HTTP requests
type Handler struct {
	service Catalogue
	clock   domain.Clock
	log     zerolog.Logger
}

// NewHandler creates a new stock item handler
func NewHandler(service Catalogue, clock domain.Clock, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		clock:   clock,
		log:     log.With().Str("handler", "stockitems").Logger(),
	}
}

// HandleSearch handles GET /api/stock-items?query=heart&limit=50
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := stockitems.DefaultLimit
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > stockitems.MaxLimit {
			utils.WriteError(w, &domain.InvalidInputError{
				Field:   "limit",
				Message: fmt.Sprintf("must be between 1 and %d", stockitems.MaxLimit),
			}, h.log)
			return
		}
		limit = parsed
	}

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

	result, err := h.service.Search(r.Context(), stockitems.SearchParams{
		Query:    q.Get("query"),
		Limit:    limit,
		Snapshot: snapshot,
		Filter:   filter,
	})
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	utils.WriteData(w, http.StatusOK, result, h.log)
}

// HandleGet handles GET /api/stock-items/{stockCode}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	stockCode := chi.URLParam(r, "stockCode")

	filter, err := utils.ParseTransactionFilter(r.URL.Query())
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	detail, err := h.service.Get(r.Context(), stockCode, filter)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	utils.WriteData(w, http.StatusOK, detail, h.log)
}
