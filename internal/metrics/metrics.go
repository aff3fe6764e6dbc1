// Package metrics exposes Prometheus instrumentation for the analytics service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "elasticom"

// Metrics holds all Prometheus collectors for the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	EstimationsTotal   *prometheus.CounterVec
	EstimationDuration prometheus.Histogram
	SegmentedCustomers *prometheus.GaugeVec
	SimulationsTotal   *prometheus.CounterVec
	TransactionsStored prometheus.Counter
	JobRunsTotal       *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegistry(reg)
}

// NewWithRegistry registers all metrics on reg
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		EstimationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "elasticity_estimations_total",
				Help:      "Elasticity fits attempted, by outcome",
			},
			[]string{"outcome"},
		),
		EstimationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "elasticity_batch_duration_seconds",
			Help:      "Time to estimate elasticity for one request scope",
			Buckets:   prometheus.DefBuckets,
		}),
		SegmentedCustomers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rfm_segment_customers",
				Help:      "Customers per segment in the most recent segmentation",
			},
			[]string{"segment"},
		),
		SimulationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "simulations_total",
				Help:      "Price simulations run, by implausible and fallback flags",
			},
			[]string{"implausible", "fallback"},
		),
		TransactionsStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_stored_total",
			Help:      "Transactions written to the store",
		}),
		JobRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_runs_total",
				Help:      "Scheduled job runs, by job and status",
			},
			[]string{"job", "status"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests, by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency, by route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// ObserveEstimation records one fit outcome ("ok", "insufficient_data", ...)
func (m *Metrics) ObserveEstimation(outcome string) {
	if m == nil {
		return
	}
	m.EstimationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveEstimationBatch records how long one request scope took
func (m *Metrics) ObserveEstimationBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.EstimationDuration.Observe(d.Seconds())
}

// SetSegmentCounts replaces the per-segment customer gauge
func (m *Metrics) SetSegmentCounts(counts map[string]int) {
	if m == nil {
		return
	}
	m.SegmentedCustomers.Reset()
	for segment, n := range counts {
		m.SegmentedCustomers.WithLabelValues(segment).Set(float64(n))
	}
}

// ObserveSimulation records one simulation and its flags
func (m *Metrics) ObserveSimulation(implausible, fallback bool) {
	if m == nil {
		return
	}
	m.SimulationsTotal.WithLabelValues(strconv.FormatBool(implausible), strconv.FormatBool(fallback)).Inc()
}

// AddTransactions records n stored transactions
func (m *Metrics) AddTransactions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TransactionsStored.Add(float64(n))
}

// ObserveJob records a scheduled job run
func (m *Metrics) ObserveJob(job string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.JobRunsTotal.WithLabelValues(job, status).Inc()
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}
