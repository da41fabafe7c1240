// Package metrics defines the Prometheus collectors for the cleaner and the
// chunking service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	OutcomesTotal       *prometheus.CounterVec
	RouteDecisionsTotal *prometheus.CounterVec
	RemoteAttemptsTotal *prometheus.CounterVec
	RemoteLatency       *prometheus.HistogramVec
	ChunksProducedTotal prometheus.Counter
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg. A nil reg uses a
// fresh private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docscrub_http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docscrub_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "route"},
		),
		OutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docscrub_document_outcomes_total",
				Help: "Per-document pipeline outcomes by status and error kind.",
			},
			[]string{"status", "kind"},
		),
		RouteDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docscrub_route_decisions_total",
				Help: "Processing routes chosen per document.",
			},
			[]string{"route", "strategy"},
		),
		RemoteAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docscrub_remote_attempts_total",
				Help: "Remote chunking service calls by endpoint and result.",
			},
			[]string{"endpoint", "result"},
		),
		RemoteLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docscrub_remote_latency_seconds",
				Help:    "Remote chunking call latency in seconds.",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"endpoint"},
		),
		ChunksProducedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docscrub_chunks_produced_total",
				Help: "Total chunks cleaned or produced.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docscrub_chunk_cache_hits_total",
				Help: "Chunking service result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docscrub_chunk_cache_misses_total",
				Help: "Chunking service result cache misses.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.OutcomesTotal,
		m.RouteDecisionsTotal,
		m.RemoteAttemptsTotal,
		m.RemoteLatency,
		m.ChunksProducedTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) ObserveOutcome(status, kind string) {
	if m == nil {
		return
	}
	m.OutcomesTotal.WithLabelValues(status, kind).Inc()
}

func (m *Metrics) ObserveRoute(route, strategy string) {
	if m == nil {
		return
	}
	m.RouteDecisionsTotal.WithLabelValues(route, strategy).Inc()
}

// ObserveRemote records one remote call; err == nil counts as success.
func (m *Metrics) ObserveRemote(endpoint string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.RemoteAttemptsTotal.WithLabelValues(endpoint, result).Inc()
	m.RemoteLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (m *Metrics) AddChunks(n int) {
	if m == nil {
		return
	}
	m.ChunksProducedTotal.Add(float64(n))
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
	} else {
		m.CacheMissesTotal.Inc()
	}
}
