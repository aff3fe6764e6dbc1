package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/elasticom/internal/modules/elasticity"
	"github.com/aristath/elasticom/internal/modules/rfm"
	"github.com/aristath/elasticom/internal/modules/stockitems"
	testingpkg "github.com/aristath/elasticom/internal/testing"
)

func setupRouter() chi.Router {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	start := time.Date(2011, 1, 3, 10, 0, 0, 0, time.UTC)

	records := testingpkg.NewConstantElasticityFixtures("85123A", -1.2, 500, []float64{1.5, 2, 2.5, 3, 3.5, 4}, start)
	for i := range records {
		records[i] = testingpkg.WithDescription(records[i], "WHITE HANGING HEART T-LIGHT HOLDER")
	}
	records = append(records, testingpkg.NewConstantElasticityFixtures("71053", -1, 100, []float64{3, 3, 3}, start)...)
	store := testingpkg.NewMockTransactionStore(records...)

	svc := stockitems.NewService(store,
		elasticity.NewService(store, nil, nil, logger),
		rfm.NewService(store, nil, logger),
		logger)

	router := chi.NewRouter()
	NewHandler(svc, testingpkg.FixedClock(testingpkg.FixtureSnapshot), logger).RegisterRoutes(router)
	return router
}

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHandleSearch(t *testing.T) {
	router := setupRouter()

	w := get(router, "/stock-items?query=heart")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var envelope struct {
		Data stockitems.SearchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 1, envelope.Data.Total)
	assert.True(t, testingpkg.FixtureSnapshot.Equal(envelope.Data.ReferenceDate))
	require.Len(t, envelope.Data.Items, 1)
	assert.Equal(t, "85123A", envelope.Data.Items[0].StockCode)
	assert.True(t, envelope.Data.Items[0].Fitted)
	assert.InDelta(t, 1.2, envelope.Data.Items[0].RevenuePotential, 0.05)

	w = get(router, "/stock-items?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 2, envelope.Data.Total)
	require.Len(t, envelope.Data.Items, 1)
	assert.Equal(t, "71053", envelope.Data.Items[0].StockCode)

	w = get(router, "/stock-items?reference_date=2011-06-30")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "2011-06-30", envelope.Data.ReferenceDate.Format("2006-01-02"))
}

func TestHandleSearch_BadInput(t *testing.T) {
	router := setupRouter()

	for _, target := range []string{
		"/stock-items?limit=0",
		"/stock-items?limit=1001",
		"/stock-items?limit=many",
		"/stock-items?start_date=2011-13-01",
		"/stock-items?reference_date=yesterday",
	} {
		w := get(router, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestHandleGet(t *testing.T) {
	router := setupRouter()

	w := get(router, "/stock-items/85123A")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var envelope struct {
		Data stockitems.Detail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Fitted)
	assert.Equal(t, "WHITE HANGING HEART T-LIGHT HOLDER", envelope.Data.Description)
	assert.InDelta(t, -1.2, envelope.Data.Elasticity, 0.05)

	w = get(router, "/stock-items/71053")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Data.Fitted)
	assert.Equal(t, "insufficient_data", envelope.Data.FitError)
	assert.Equal(t, int64(99), envelope.Data.TotalQuantity)

	w = get(router, "/stock-items/NOPE")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
