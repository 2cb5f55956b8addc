package monitoring

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "survey"

// Metrics holds the service's prometheus collectors on a private registry,
// plus a few counters mirrored for the health endpoint.
type Metrics struct {
	registry *prometheus.Registry

	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	pipelineRuns      *prometheus.CounterVec
	pipelineDuration  prometheus.Histogram
	pipelineRows      *prometheus.CounterVec
	silhouette        prometheus.Gauge
	cacheLookups      *prometheus.CounterVec
	rateLimitBlocks   *prometheus.CounterVec
	rateLimitFallback prometheus.Counter

	requestCount  int64
	errorCount    int64
	pipelineCount int64
}

// NewMetrics creates and registers every collector
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		pipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		pipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Wall time of successful pipeline runs.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		pipelineRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_rows_total",
			Help:      "Respondent rows seen by the pipeline, kept or dropped.",
		}, []string{"state"}),
		silhouette: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_silhouette_score",
			Help:      "Mean silhouette score of the most recent run.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result.",
		}, []string{"result"}),
		rateLimitBlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_blocked_total",
			Help:      "Requests rejected by the rate limiter by endpoint.",
		}, []string{"endpoint"}),
		rateLimitFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_fallback_total",
			Help:      "Rate limit decisions made in-process because Redis was unavailable.",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.pipelineRuns,
		m.pipelineDuration,
		m.pipelineRows,
		m.silhouette,
		m.cacheLookups,
		m.rateLimitBlocks,
		m.rateLimitFallback,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{Namespace: namespace}),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	atomic.AddInt64(&m.requestCount, 1)
	if status >= 400 {
		atomic.AddInt64(&m.errorCount, 1)
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObservePipeline records a successful run
func (m *Metrics) ObservePipeline(duration time.Duration, kept, dropped int, silhouette *float64) {
	atomic.AddInt64(&m.pipelineCount, 1)
	m.pipelineRuns.WithLabelValues("success").Inc()
	m.pipelineDuration.Observe(duration.Seconds())
	m.pipelineRows.WithLabelValues("kept").Add(float64(kept))
	m.pipelineRows.WithLabelValues("dropped").Add(float64(dropped))
	if silhouette != nil {
		m.silhouette.Set(*silhouette)
	}
}

// PipelineFailed records a run aborted with an error of the given category
func (m *Metrics) PipelineFailed(category string) {
	m.pipelineRuns.WithLabelValues(category).Inc()
}

// IncrementCacheHit increments cache hit count
func (m *Metrics) IncrementCacheHit() {
	m.cacheLookups.WithLabelValues("hit").Inc()
}

// IncrementCacheMiss increments cache miss count
func (m *Metrics) IncrementCacheMiss() {
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// IncrementRateLimitBlock counts a rejected request
func (m *Metrics) IncrementRateLimitBlock(endpoint string) {
	m.rateLimitBlocks.WithLabelValues(endpoint).Inc()
}

// IncrementRateLimitFallback counts an in-process rate limit decision
func (m *Metrics) IncrementRateLimitFallback() {
	m.rateLimitFallback.Inc()
}

// GetStats returns a summary for the health endpoint
func (m *Metrics) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"requests":      atomic.LoadInt64(&m.requestCount),
		"errors":        atomic.LoadInt64(&m.errorCount),
		"pipeline_runs": atomic.LoadInt64(&m.pipelineCount),
		"uptime":        Uptime().Round(time.Second).String(),
	}
}
