// Package metrics provides Prometheus metrics for the EstimaTB service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Analysis outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeFatal = "fatal"
	OutcomeNoFit = "no_fit"
	OutcomeError = "error"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Estimation
	analyses            *prometheus.CounterVec
	candidatesEvaluated prometheus.Counter
	candidatesUnusable  prometheus.Counter
	validationMessages  *prometheus.CounterVec
	estimationLatency   prometheus.Histogram
	seriesDays          prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	uploadBytes         prometheus.Histogram

	// Errors
	errorRateByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "estimatb",
		subsystem:        "estimator",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.analyses = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "analyses_total",
		Help:        "Total number of analyses by outcome",
		ConstLabels: labels,
	}, []string{"outcome"})

	m.candidatesEvaluated = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "candidates_evaluated_total",
		Help:        "Total number of Tb candidates fitted",
		ConstLabels: labels,
	})

	m.candidatesUnusable = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "candidates_unusable_total",
		Help:        "Total number of Tb candidates without a usable sample",
		ConstLabels: labels,
	})

	m.validationMessages = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "validation_messages_total",
		Help:        "Total number of data validation messages by kind and severity",
		ConstLabels: labels,
	}, []string{"kind", "severity"})

	m.estimationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "estimation_latency_milliseconds",
		Help:        "Histogram of grid search latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.seriesDays = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "series_days",
		Help:        "Number of days in prepared series",
		Buckets:     prometheus.ExponentialBuckets(8, 2, 8),
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.uploadBytes = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "upload_bytes",
		Help:        "Size of uploaded tables in bytes",
		Buckets:     prometheus.ExponentialBuckets(1024, 4, 8),
		ConstLabels: labels,
	})

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_component_total",
			Help:        "Total number of errors by component",
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "System memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// RecordAnalysis counts one analysis by outcome.
func (m *Manager) RecordAnalysis(outcome string) {
	if m.enabled {
		m.analyses.WithLabelValues(outcome).Inc()
	}
}

// RecordCandidates counts fitted and unusable candidates of one search.
func (m *Manager) RecordCandidates(evaluated, unusable int) {
	if m.enabled {
		m.candidatesEvaluated.Add(float64(evaluated))
		m.candidatesUnusable.Add(float64(unusable))
	}
}

// RecordValidationMessage counts a validation message.
func (m *Manager) RecordValidationMessage(kind, severity string) {
	if m.enabled {
		m.validationMessages.WithLabelValues(kind, severity).Inc()
	}
}

// RecordEstimationLatency records grid search latency in milliseconds.
func (m *Manager) RecordEstimationLatency(latencyMs float64) {
	if m.enabled {
		m.estimationLatency.Observe(latencyMs)
	}
}

// RecordSeriesDays records the length of a prepared series.
func (m *Manager) RecordSeriesDays(days int) {
	if m.enabled {
		m.seriesDays.Observe(float64(days))
	}
}

// RecordHTTPRequest records an HTTP request and its duration in milliseconds.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if m.enabled {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// RecordUploadBytes records the size of an uploaded table.
func (m *Manager) RecordUploadBytes(n int64) {
	if m.enabled {
		m.uploadBytes.Observe(float64(n))
	}
}

// RecordErrorByComponent records an error with component and type labels.
func (m *Manager) RecordErrorByComponent(component, errorType string) {
	if m.enabled {
		m.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// UpdateSystem sets memory and goroutine gauges and observes a GC pause.
func (m *Manager) UpdateSystem(memBytes uint64, goroutines int, gcPauseMs float64) {
	if !m.enabled {
		return
	}
	m.systemMemoryUsage.Set(float64(memBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
	if gcPauseMs > 0 {
		m.systemGCPauseTime.Observe(gcPauseMs)
	}
}

// Package-level helpers record on the global manager.

// RecordAnalysis counts one analysis by outcome.
func RecordAnalysis(outcome string) { globalManager.RecordAnalysis(outcome) }

// RecordCandidates counts fitted and unusable candidates of one search.
func RecordCandidates(evaluated, unusable int) { globalManager.RecordCandidates(evaluated, unusable) }

// RecordValidationMessage counts a validation message.
func RecordValidationMessage(kind, severity string) {
	globalManager.RecordValidationMessage(kind, severity)
}

// RecordEstimationLatency records grid search latency in milliseconds.
func RecordEstimationLatency(latencyMs float64) { globalManager.RecordEstimationLatency(latencyMs) }

// RecordSeriesDays records the length of a prepared series.
func RecordSeriesDays(days int) { globalManager.RecordSeriesDays(days) }

// RecordHTTPRequest records an HTTP request and its duration in milliseconds.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordUploadBytes records the size of an uploaded table.
func RecordUploadBytes(n int64) { globalManager.RecordUploadBytes(n) }

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.RecordErrorByComponent(component, errorType)
}

// UpdateSystem updates the system gauges on the global manager.
func UpdateSystem(memBytes uint64, goroutines int, gcPauseMs float64) {
	globalManager.UpdateSystem(memBytes, goroutines, gcPauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
