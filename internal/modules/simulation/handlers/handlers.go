// Package handlers provides HTTP handlers for price simulations and saved scenarios.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/internal/modules/simulation"
	"github.com/aristath/elasticom/internal/utils"
)

// MaxPortfolioItems caps the number of stock codes in one portfolio request
const MaxPortfolioItems = 200

// Simulator is the simulation service surface the handlers need
type Simulator interface {
	SimulateItem(ctx context.Context, stockCode string, change simulation.PriceChange, filter domain.TransactionFilter) (*simulation.ItemResult, error)
	SimulatePortfolio(ctx context.Context, stockCodes []string, change simulation.PriceChange, filter domain.TransactionFilter) (*simulation.PortfolioReport, error)
	Save(ctx context.Context, sim simulation.SavedSimulation) (*simulation.SavedSimulation, error)
	Get(ctx context.Context, id string) (*simulation.SavedSimulation, error)
	List(ctx context.Context, limit int) ([]simulation.SavedSimulation, int, error)
	Update(ctx context.Context, id string, u simulation.Update) (*simulation.SavedSimulation, error)
	Delete(ctx context.Context, id string) error
	SegmentMetrics(ctx context.Context, id string, snapshot time.Time) (*simulation.SegmentMetrics, error)
	Curve(ctx context.Context, id string, filter domain.TransactionFilter) (*simulation.Curve, error)
}

// Handler handles simulation HTTP requests
type Handler struct {
	service Simulator
	clock   domain.Clock
	log     zerolog.Logger
}

// NewHandler creates a new simulation handler
func NewHandler(service Simulator, clock domain.Clock, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		clock:   clock,
		log:     log.With().Str("handler", "simulation").Logger(),
	}
}

// SimulateRequest is the body of POST /api/simulation/simulate.
// Exactly one of the two price change fields must be set.
type SimulateRequest struct {
	StockCode          string   `json:"stock_code"`
	PriceChangePercent *float64 `json:"price_change_percent,omitempty"`
	PriceChangeAmount  *float64 `json:"price_change_amount,omitempty"`
	StartDate          string   `json:"start_date,omitempty"`
	EndDate            string   `json:"end_date,omitempty"`
	Country            string   `json:"country,omitempty"`
}

func (req SimulateRequest) change() (simulation.PriceChange, error) {
	switch {
	case req.PriceChangePercent != nil && req.PriceChangeAmount != nil:
		return simulation.PriceChange{}, &domain.InvalidInputError{
			Field:   "price_change_percent",
			Message: "set either price_change_percent or price_change_amount, not both",
		}
	case req.PriceChangePercent != nil:
		if err := simulation.ValidatePercent("price_change_percent", *req.PriceChangePercent); err != nil {
			return simulation.PriceChange{}, err
		}
		return simulation.PercentChange(*req.PriceChangePercent), nil
	case req.PriceChangeAmount != nil:
		return simulation.AbsoluteChange(*req.PriceChangeAmount), nil
	default:
		return simulation.PriceChange{}, &domain.InvalidInputError{
			Field:   "price_change_percent",
			Message: "price_change_percent or price_change_amount is required",
		}
	}
}

func requestFilter(startDate, endDate, country string) (domain.TransactionFilter, error) {
	start, err := utils.ParseDate("start_date", startDate)
	if err != nil {
		return domain.TransactionFilter{}, err
	}
	end, err := utils.ParseDate("end_date", endDate)
	if err != nil {
		return domain.TransactionFilter{}, err
	}
	return domain.TransactionFilter{StartDate: start, EndDate: end, Country: country}, nil
}

// HandleSimulate handles POST /api/simulation/simulate
func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	if req.StockCode == "" {
		utils.WriteError(w, &domain.InvalidInputError{Field: "stock_code", Message: "is required"}, h.log)
		return
	}

	change, err := req.change()
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	filter, err := requestFilter(req.StartDate, req.EndDate, req.Country)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	result, err := h.service.SimulateItem(r.Context(), req.StockCode, change, filter)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	utils.WriteData(w, http.StatusOK, result, h.log)
}

// PortfolioRequest is the body of POST /api/simulation/portfolio
type PortfolioRequest struct {
	StockCodes         []string `json:"stock_codes"`
	PriceChangePercent float64  `json:"price_change_percent"`
	StartDate          string   `json:"start_date,omitempty"`
	EndDate            string   `json:"end_date,omitempty"`
	Country            string   `json:"country,omitempty"`
}

// HandlePortfolio handles POST /api/simulation/portfolio
func (h *Handler) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	var req PortfolioRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	if len(req.StockCodes) == 0 || len(req.StockCodes) > MaxPortfolioItems {
		utils.WriteError(w, &domain.InvalidInputError{
			Field:   "stock_codes",
			Message: "must contain 1 to " + strconv.Itoa(MaxPortfolioItems) + " items",
		}, h.log)
		return
	}
	if err := simulation.ValidatePercent("price_change_percent", req.PriceChangePercent); err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	filter, err := requestFilter(req.StartDate, req.EndDate, req.Country)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	report, err := h.service.SimulatePortfolio(r.Context(), req.StockCodes, simulation.PercentChange(req.PriceChangePercent), filter)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	utils.WriteData(w, http.StatusOK, report, h.log)
}

// CreateRequest is the body of POST /api/simulations
type CreateRequest struct {
	Name        string                `json:"name"`
	Description *string               `json:"description,omitempty"`
	StockCode   string                `json:"stock_item_ref"`
	PriceRange  simulation.PriceRange `json:"price_range"`
}

// HandleCreate handles POST /api/simulations
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	created, err := h.service.Save(r.Context(), simulation.SavedSimulation{
		Name:        req.Name,
		Description: req.Description,
		StockCode:   req.StockCode,
		PriceRange:  req.PriceRange,
	})
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	utils.WriteData(w, http.StatusCreated, created, h.log)
}

// HandleList handles GET /api/simulations
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			utils.WriteError(w, &domain.InvalidInputError{Field: "limit", Message: "must be between 1 and 100"}, h.log)
			return
		}
		limit = parsed
	}

	sims, total, err := h.service.List(r.Context(), limit)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	utils.WriteData(w, http.StatusOK, map[string]interface{}{
		"simulations": sims,
		"total":       total,
	}, h.log)
}

// HandleGet handles GET /api/simulations/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sim, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	utils.WriteData(w, http.StatusOK, sim, h.log)
}

// HandleUpdate handles PUT /api/simulations/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req simulation.Update
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	sim, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	utils.WriteData(w, http.StatusOK, sim, h.log)
}

// HandleDelete handles DELETE /api/simulations/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMetrics handles GET /api/simulations/{id}/metrics
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	snapshot, err := utils.ParseReferenceDate(r.URL.Query(), h.clock)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	metrics, err := h.service.SegmentMetrics(r.Context(), chi.URLParam(r, "id"), snapshot)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	utils.WriteData(w, http.StatusOK, metrics, h.log)
}

// HandleCurve handles GET /api/simulations/{id}/curve
func (h *Handler) HandleCurve(w http.ResponseWriter, r *http.Request) {
	filter, err := utils.ParseTransactionFilter(r.URL.Query())
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	curve, err := h.service.Curve(r.Context(), chi.URLParam(r, "id"), filter)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	utils.WriteData(w, http.StatusOK, curve, h.log)
}
