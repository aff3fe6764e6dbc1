package elasticity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/internal/metrics"
	testingpkg "github.com/aristath/elasticom/internal/testing"
)

var fixtureStart = time.Date(2011, 1, 3, 10, 0, 0, 0, time.UTC)

func newTestService(store domain.TransactionQuerier, m *metrics.Metrics) *Service {
	return NewService(store, nil, m, zerolog.New(nil).Level(zerolog.Disabled))
}

func mixedFixtures() []domain.TransactionRecord {
	records := testingpkg.NewConstantElasticityFixtures("85123A", -1.2, 500, []float64{1.5, 2, 2.5, 3, 3.5, 4}, fixtureStart)
	records = append(records, testingpkg.NewConstantElasticityFixtures("22423", -0.5, 200, []float64{10, 12, 14, 16}, fixtureStart)...)
	// Constant price: not identifiable
	records = append(records, testingpkg.NewConstantElasticityFixtures("71053", -1, 100, []float64{3, 3, 3}, fixtureStart)...)
	// Returns only
	records = append(records, testingpkg.Txn("C999", "84406B", "C1", -4, "2.75", fixtureStart))
	return records
}

func TestService_EstimateItems(t *testing.T) {
	store := testingpkg.NewMockTransactionStore(mixedFixtures()...)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	svc := newTestService(store, m)

	report, err := svc.EstimateItems(context.Background(), domain.TransactionFilter{})
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.Equal(t, "22423", report.Results[0].StockCode)
	assert.Equal(t, "85123A", report.Results[1].StockCode)
	assert.InDelta(t, -0.5, report.Results[0].Coefficient, 0.05)
	assert.InDelta(t, -1.2, report.Results[1].Coefficient, 0.05)
	assert.Equal(t, 6, report.Results[1].Days)

	require.Len(t, report.Skipped, 2)
	assert.Equal(t, "71053", report.Skipped[0].StockCode)
	assert.Equal(t, "insufficient_data", report.Skipped[0].Kind)
	assert.Equal(t, "84406B", report.Skipped[1].StockCode)

	assert.Equal(t, 4, report.Meta.TotalProducts)
	assert.Equal(t, 2, report.Meta.ReturnedProducts)
	require.NotNil(t, report.Meta.StartDate)
	assert.Equal(t, fixtureStart, *report.Meta.StartDate)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EstimationsTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EstimationsTotal.WithLabelValues("insufficient_data")))

	found, ok := report.Find("85123A")
	require.True(t, ok)
	assert.Equal(t, "85123A", found.StockCode)
	_, ok = report.Find("missing")
	assert.False(t, ok)
}

func TestService_EstimateItems_StoreError(t *testing.T) {
	store := testingpkg.NewMockTransactionStore()
	store.SetError(errors.New("database is locked"))

	_, err := newTestService(store, nil).EstimateItems(context.Background(), domain.TransactionFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestService_EstimateItems_CancelledContext(t *testing.T) {
	store := testingpkg.NewMockTransactionStore(mixedFixtures()...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestService(store, nil).EstimateItems(ctx, domain.TransactionFilter{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_EstimateItem(t *testing.T) {
	store := testingpkg.NewMockTransactionStore(mixedFixtures()...)
	svc := newTestService(store, nil)
	ctx := context.Background()

	item, err := svc.EstimateItem(ctx, "85123A", domain.TransactionFilter{})
	require.NoError(t, err)
	assert.InDelta(t, -1.2, item.Coefficient, 0.05)

	_, err = svc.EstimateItem(ctx, "71053", domain.TransactionFilter{})
	assert.True(t, domain.IsInsufficientData(err))

	_, err = svc.EstimateItem(ctx, "84406B", domain.TransactionFilter{})
	assert.True(t, domain.IsInsufficientData(err))

	_, err = svc.EstimateItem(ctx, "NOPE", domain.TransactionFilter{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_EstimateForCustomers(t *testing.T) {
	store := testingpkg.NewMockTransactionStore(mixedFixtures()...)
	svc := newTestService(store, nil)
	ctx := context.Background()

	empty, err := svc.EstimateForCustomers(ctx, nil, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, empty.Results)
	assert.Equal(t, 0, store.Queries(), "no customers means no query")

	// Fixtures rotate customers C000..C004 across days
	report, err := svc.EstimateForCustomers(ctx, []string{"C000", "C001", "C002"}, domain.TransactionFilter{})
	require.NoError(t, err)
	item, ok := report.Find("85123A")
	require.True(t, ok)
	assert.Equal(t, 4, item.Days, "days 0, 1, 2 and 5 belong to C000..C002")
}
