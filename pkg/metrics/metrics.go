// Package metrics defines the Prometheus collectors used by the intersection
// service and the benchmark harness, and serves them with the health checks
// on an admin listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	IntersectDuration    *prometheus.HistogramVec
	IntersectResults     *prometheus.HistogramVec
	IntersectMismatches  *prometheus.CounterVec
	IntersectRequests    *prometheus.CounterVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	ListsLoaded          prometheus.Gauge
	ReportsRecorded      *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not panic.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		IntersectDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "intersect_duration_seconds",
				Help:    "Wall time of a single intersection by algorithm.",
				Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
			},
			[]string{"algorithm"},
		),
		IntersectResults: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "intersect_results",
				Help:    "Number of postings in an intersection result.",
				Buckets: prometheus.ExponentialBuckets(1, 10, 8),
			},
			[]string{"algorithm"},
		),
		IntersectMismatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intersect_mismatches_total",
				Help: "Benchmark results that differ from the linear merge baseline.",
			},
			[]string{"algorithm"},
		),
		IntersectRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intersect_requests_total",
				Help: "Intersection API requests by algorithm and cache status (hit, miss, error).",
			},
			[]string{"algorithm", "cache_status"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses.",
			},
		),
		ListsLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "posting_lists_loaded",
				Help: "Number of posting lists held in the catalog.",
			},
		),
		ReportsRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bench_reports_recorded_total",
				Help: "Benchmark reports handed to a sink by sink and status.",
			},
			[]string{"sink", "status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.IntersectDuration,
		m.IntersectResults,
		m.IntersectMismatches,
		m.IntersectRequests,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.ListsLoaded,
		m.ReportsRecorded,
		m.CircuitBreakerState,
	)

	return m
}
