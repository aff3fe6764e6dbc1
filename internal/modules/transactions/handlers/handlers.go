// Package handlers provides HTTP handlers for transaction ingestion and lookup.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/internal/utils"
)

// MaxBatchSize caps the number of records accepted by one batch request
const MaxBatchSize = 10000

// Store is the repository surface the handlers need
type Store interface {
	Create(ctx context.Context, t domain.TransactionRecord) (*domain.TransactionRecord, error)
	CreateBatch(ctx context.Context, records []domain.TransactionRecord) ([]domain.TransactionRecord, error)
	GetByID(ctx context.Context, id string) (*domain.TransactionRecord, error)
	List(ctx context.Context, filter domain.TransactionFilter, limit int) ([]domain.TransactionRecord, error)
	Count(ctx context.Context, filter domain.TransactionFilter) (int, error)
	Countries(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
}

// Handler handles transaction HTTP requests
type Handler struct {
	store Store
	log   zerolog.Logger
}

// NewHandler creates a new transactions handler
func NewHandler(store Store, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "transactions").Logger(),
	}
}

// CreateRequest is the JSON body for a new transaction
type CreateRequest struct {
	InvoiceDate time.Time       `json:"invoice_date"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Description *string         `json:"description,omitempty"`
	CustomerID  *string         `json:"customer_id,omitempty"`
	Country     *string         `json:"country,omitempty"`
	InvoiceNo   string          `json:"invoice_no"`
	StockCode   string          `json:"stock_code"`
	Quantity    int64           `json:"quantity"`
}

func (c CreateRequest) toRecord() domain.TransactionRecord {
	return domain.TransactionRecord{
		InvoiceNo:   c.InvoiceNo,
		StockCode:   c.StockCode,
		Description: c.Description,
		Quantity:    c.Quantity,
		UnitPrice:   c.UnitPrice,
		InvoiceDate: c.InvoiceDate,
		CustomerID:  c.CustomerID,
		Country:     c.Country,
	}
}

// HandleCreate handles POST /api/transactions
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	created, err := h.store.Create(r.Context(), req.toRecord())
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteData(w, http.StatusCreated, created, h.log)
}

// HandleCreateBatch handles POST /api/transactions/batch
func (h *Handler) HandleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transactions []CreateRequest `json:"transactions"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	if len(req.Transactions) > MaxBatchSize {
		utils.WriteError(w, &domain.InvalidInputError{
			Field:   "transactions",
			Message: "at most " + strconv.Itoa(MaxBatchSize) + " records per batch",
		}, h.log)
		return
	}

	records := make([]domain.TransactionRecord, len(req.Transactions))
	for i, t := range req.Transactions {
		records[i] = t.toRecord()
	}

	created, err := h.store.CreateBatch(r.Context(), records)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	h.log.Info().Int("count", len(created)).Msg("Transaction batch stored")
	utils.WriteData(w, http.StatusCreated, map[string]interface{}{
		"created": len(created),
	}, h.log)
}

// HandleList handles GET /api/transactions
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := utils.ParseTransactionFilter(r.URL.Query())
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			utils.WriteError(w, &domain.InvalidInputError{Field: "limit", Message: "must be between 1 and 1000"}, h.log)
			return
		}
		limit = parsed
	}

	records, err := h.store.List(r.Context(), filter, limit)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	total, err := h.store.Count(r.Context(), filter)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteData(w, http.StatusOK, map[string]interface{}{
		"transactions": records,
		"total":        total,
		"returned":     len(records),
	}, h.log)
}

// HandleGet handles GET /api/transactions/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	record, err := h.store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	utils.WriteData(w, http.StatusOK, record, h.log)
}

// HandleCountries handles GET /api/transactions/countries
func (h *Handler) HandleCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.store.Countries(r.Context())
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	utils.WriteData(w, http.StatusOK, countries, h.log)
}

// HandleDelete handles DELETE /api/transactions/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		utils.WriteError(w, err, h.log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteAll handles DELETE /api/transactions?confirm=true
func (h *Handler) HandleDeleteAll(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		utils.WriteError(w, &domain.InvalidInputError{Field: "confirm", Message: "must be true to delete all transactions"}, h.log)
		return
	}

	deleted, err := h.store.DeleteAll(r.Context())
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	h.log.Warn().Int64("deleted", deleted).Msg("All transactions deleted via API")
	utils.WriteData(w, http.StatusOK, map[string]interface{}{"deleted": deleted}, h.log)
}
