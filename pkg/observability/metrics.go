package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Source scan metrics
	ScansTotal   *prometheus.CounterVec
	ScanDuration *prometheus.HistogramVec

	// Identity metrics
	IdentityFallbacks prometheus.Counter
	CacheHitsTotal    *prometheus.CounterVec
	CacheMissesTotal  *prometheus.CounterVec

	// Data-quality metrics
	UnattributableRecords *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tally_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_source_scans_total",
				Help: "Total number of source table scans",
			},
			[]string{"source", "status"},
		),
		ScanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tally_source_scan_duration_seconds",
				Help:    "Source table scan duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"source"},
		),
		IdentityFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tally_identity_fallbacks_total",
				Help: "Total number of identity lookups degraded to the fallback identity",
			},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_cache_hits_total",
				Help: "Total number of identity cache hits",
			},
			[]string{"cache_type"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_cache_misses_total",
				Help: "Total number of identity cache misses",
			},
			[]string{"cache_type"},
		),
		UnattributableRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_unattributable_records_total",
				Help: "Total number of records lacking a resolvable owner id",
			},
			[]string{"source"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ScansTotal,
		m.ScanDuration,
		m.IdentityFallbacks,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.UnattributableRecords,
	)

	return m
}

// InitMetrics creates metrics on a fresh registry
func InitMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// Handler returns the Prometheus scrape handler for this metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
