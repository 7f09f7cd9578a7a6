package monitoring

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Tracing metrics
	SpansStarted   prometheus.Counter
	SpansCompleted *prometheus.CounterVec
	SpansSlow      prometheus.Counter
	SpansDropped   prometheus.Counter
	ExportFailures prometheus.Counter
	SpanDuration   prometheus.Histogram

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests int64
	TotalErrors   int64
	TotalSpans    int64
	SlowSpans     int64
	TotalDuration float64 // sum of all request durations
	RequestCount  int64   // count for averaging
}

// NewMetrics creates a new metrics collector registered on reg.
// Callers own the registry; tests pass a fresh one to avoid duplicate
// registration across instances.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		SpansStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_tracing_spans_started_total",
				Help: "Total number of spans opened",
			},
		),
		SpansCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_tracing_spans_completed_total",
				Help: "Total number of spans completed, by terminal status",
			},
			[]string{"status"},
		),
		SpansSlow: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_tracing_spans_slow_total",
				Help: "Total number of spans flagged as slow operations",
			},
		),
		SpansDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_tracing_spans_dropped_total",
				Help: "Total number of spans dropped by the export queue",
			},
		),
		ExportFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_tracing_export_failures_total",
				Help: "Total number of span export attempts that failed",
			},
		),
		SpanDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "backend_tracing_span_duration_seconds",
				Help:    "Span duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
	}
}

// RecordHTTPRequest records metrics for an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.Uptime.Set(time.Since(m.startTime).Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.TotalRequests++
	m.snapshot.RequestCount++
	m.snapshot.TotalDuration += duration.Seconds()
	if strings.HasPrefix(status, "5") {
		m.snapshot.TotalErrors++
	}
}

// RecordSpanStart records a span being opened
func (m *Metrics) RecordSpanStart() {
	m.SpansStarted.Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.TotalSpans++
}

// RecordSpanComplete records a span completing with the given status
func (m *Metrics) RecordSpanComplete(status string, duration time.Duration, slow bool) {
	m.SpansCompleted.WithLabelValues(status).Inc()
	m.SpanDuration.Observe(duration.Seconds())
	if slow {
		m.SpansSlow.Inc()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if slow {
		m.snapshot.SlowSpans++
	}
	if status == "error" {
		m.snapshot.TotalErrors++
	}
}

// RecordSpanDropped records a span shed by the export queue
func (m *Metrics) RecordSpanDropped() {
	m.SpansDropped.Inc()
}

// RecordExportFailure records a failed export attempt
func (m *Metrics) RecordExportFailure() {
	m.ExportFailures.Inc()
}

// Snapshot returns current metric values for the JSON API
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
