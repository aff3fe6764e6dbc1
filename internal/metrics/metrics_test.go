package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveEstimation("ok")
		m.ObserveEstimationBatch(time.Second)
		m.SetSegmentCounts(map[string]int{"Champions": 3})
		m.ObserveSimulation(true, false)
		m.AddTransactions(5)
		m.ObserveJob("wal_checkpoint", nil)
		m.ObserveHTTP("GET", "/health", 200, time.Millisecond)
	})
}

func TestCounters(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveEstimation("ok")
	m.ObserveEstimation("ok")
	m.ObserveEstimation("insufficient_data")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EstimationsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EstimationsTotal.WithLabelValues("insufficient_data")))

	m.ObserveSimulation(true, false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SimulationsTotal.WithLabelValues("true", "false")))

	m.AddTransactions(10)
	m.AddTransactions(-1)
	assert.Equal(t, 10.0, testutil.ToFloat64(m.TransactionsStored))

	m.ObserveJob("integrity_check", errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRunsTotal.WithLabelValues("integrity_check", "error")))

	m.ObserveHTTP("GET", "/api/rfm", 200, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/rfm", "200")))
}

func TestSetSegmentCounts_Replaces(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.SetSegmentCounts(map[string]int{"Champions": 3, "Lost": 2})
	m.SetSegmentCounts(map[string]int{"Champions": 1})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SegmentedCustomers.WithLabelValues("Champions")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SegmentedCustomers))
}
