package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/elasticom/internal/modules/transactions"
	testingpkg "github.com/aristath/elasticom/internal/testing"
)

func setupRouter(t *testing.T) (chi.Router, *transactions.Repository) {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	db, _ := testingpkg.NewTestDB(t, "transactions")
	repo := transactions.NewRepository(db.Conn(), nil, logger)

	router := chi.NewRouter()
	NewHandler(repo, logger).RegisterRoutes(router)
	return router, repo
}

func do(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Data
}

const validBody = `{
	"invoice_no": "536365",
	"stock_code": "85123A",
	"description": "WHITE HANGING HEART T-LIGHT HOLDER",
	"quantity": 6,
	"unit_price": "2.55",
	"invoice_date": "2010-12-01T08:26:00Z",
	"customer_id": "17850",
	"country": "United Kingdom"
}`

func TestCreateAndGet(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(router, http.MethodPost, "/transactions", validBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decodeData(t, w)
	id, ok := created["id"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, id)

	w = do(router, http.MethodGet, "/transactions/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeData(t, w)
	assert.Equal(t, "85123A", got["stock_code"])
	assert.Equal(t, "2.55", got["unit_price"])
}

func TestCreate_Validation(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(router, http.MethodPost, "/transactions", `{"invoice_no":"1","quantity":1,"unit_price":"1.00","invoice_date":"2011-01-01T00:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "stock_code")

	w = do(router, http.MethodPost, "/transactions", `{"invoice_no":"1","stock_code":"A","quantity":1,"unit_price":"-1","invoice_date":"2011-01-01T00:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/transactions", `{"bogus":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchAndList(t *testing.T) {
	router, _ := setupRouter(t)

	body := `{"transactions": [` + validBody + `,` + strings.Replace(validBody, `"536365"`, `"536366"`, 1) + `]}`
	w := do(router, http.MethodPost, "/transactions/batch", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 2.0, decodeData(t, w)["created"])

	w = do(router, http.MethodGet, "/transactions?stock_codes=85123A&limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, 2.0, data["total"])
	assert.Equal(t, 1.0, data["returned"])

	w = do(router, http.MethodGet, "/transactions?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodGet, "/transactions/countries", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "United Kingdom")
}

func TestDelete(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(router, http.MethodPost, "/transactions", validBody)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeData(t, w)["id"].(string)

	w = do(router, http.MethodDelete, "/transactions/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(router, http.MethodGet, "/transactions/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodDelete, "/transactions", "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "delete all requires confirmation")

	w = do(router, http.MethodDelete, "/transactions?confirm=true", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
