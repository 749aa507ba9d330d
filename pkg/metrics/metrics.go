// Package metrics defines the Prometheus collectors for the word-frequency
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	RunsTotal            *prometheus.CounterVec
	RunDuration          *prometheus.HistogramVec
	LinesProcessedTotal  prometheus.Counter
	WordsCountedTotal    prometheus.Counter
	DistinctWords        *prometheus.HistogramVec
	StageFailuresTotal   *prometheus.CounterVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	RulesReloadsTotal    *prometheus.CounterVec
	RulesGeneration      prometheus.Gauge
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates the collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates the collectors and registers them with reg. Tests
// pass a fresh prometheus.NewRegistry so repeated construction does not
// collide.
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
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wordfreq_runs_total",
				Help: "Total counting runs by outcome (ok, cached, error).",
			},
			[]string{"outcome"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wordfreq_run_duration_seconds",
				Help:    "Duration of a counting run in seconds.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"cache_status"},
		),
		LinesProcessedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wordfreq_lines_processed_total",
				Help: "Total lines processed by pipeline workers.",
			},
		),
		WordsCountedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wordfreq_words_counted_total",
				Help: "Total word occurrences registered after filtering.",
			},
		),
		DistinctWords: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wordfreq_distinct_words",
				Help:    "Number of distinct words per run.",
				Buckets: prometheus.ExponentialBuckets(10, 4, 8),
			},
			[]string{},
		),
		StageFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wordfreq_stage_failures_total",
				Help: "Pipeline failures by stage (read, dispatch, collect).",
			},
			[]string{"stage"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		RulesReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wordfreq_rules_reloads_total",
				Help: "Rule snapshot reloads by status.",
			},
			[]string{"status"},
		),
		RulesGeneration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wordfreq_rules_generation",
				Help: "Generation number of the active rule snapshot.",
			},
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
		m.RunsTotal,
		m.RunDuration,
		m.LinesProcessedTotal,
		m.WordsCountedTotal,
		m.DistinctWords,
		m.StageFailuresTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.RulesReloadsTotal,
		m.RulesGeneration,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
