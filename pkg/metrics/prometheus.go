// Package metrics provides Prometheus metrics for the infusion calculator service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Label values for calculation metrics.
const (
	ModeStart  = "start"
	ModeAdjust = "adjust"

	OutcomeOK      = "ok"
	OutcomeStopped = "stopped"
	OutcomeInvalid = "invalid"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Protocol metrics
	calculations          *prometheus.CounterVec
	hypoglycemiaStops     prometheus.Counter
	persistenceEscalation prometheus.Counter
	recommendedRate       *prometheus.HistogramVec
	bolusUnits            prometheus.Histogram
	glucoseReadings       *prometheus.HistogramVec
	validationErrors      *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         prometheus.Counter

	// Error Metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

	// System Performance Metrics
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
		namespace:        "glucommander",
		subsystem:        "infusion",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.calculations = auto.NewCounterVec(
		m.counterOpts("calculations_total", "Total number of dosing calculations by mode and outcome"),
		[]string{"mode", "outcome"},
	)
	m.hypoglycemiaStops = auto.NewCounter(
		m.counterOpts("hypoglycemia_stops_total", "Titrations that stopped the infusion for hypoglycemia"),
	)
	m.persistenceEscalation = auto.NewCounter(
		m.counterOpts("persistence_escalations_total", "Titrations escalated for persistent hyperglycemia"),
	)
	m.recommendedRate = auto.NewHistogramVec(
		m.histogramOpts("recommended_rate_units_per_hour", "Recommended infusion rates",
			[]float64{0, 0.5, 1, 2, 3, 5, 7.5, 10, 15, 20, 30}),
		[]string{"mode"},
	)
	m.bolusUnits = auto.NewHistogram(
		m.histogramOpts("bolus_units", "Recommended initial bolus doses",
			[]float64{0.5, 1, 2, 3, 4, 5, 7.5, 10, 15}),
	)
	m.glucoseReadings = auto.NewHistogramVec(
		m.histogramOpts("glucose_mg_dl", "Current glucose readings submitted for calculation",
			[]float64{70, 110, 140, 180, 250, 300, 400, 600}),
		[]string{"mode"},
	)
	m.validationErrors = auto.NewCounterVec(
		m.counterOpts("validation_errors_total", "Requests rejected at the boundary by reason"),
		[]string{"mode", "reason"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.rateLimited = auto.NewCounter(
		m.counterOpts("rate_limited_total", "Requests rejected by the rate limiter"),
	)

	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Total number of errors by type"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of operations that resulted in errors", m.histogramBuckets),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// Enabled reports whether recording is on.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is the period for refreshing gauge metrics.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RecordCalculation counts a calculation and observes its recommended rate.
func (m *Manager) RecordCalculation(mode, outcome string, glucose, rate float64) {
	if !m.enabled {
		return
	}
	m.calculations.WithLabelValues(mode, outcome).Inc()
	if outcome == OutcomeInvalid {
		return
	}
	m.glucoseReadings.WithLabelValues(mode).Observe(glucose)
	m.recommendedRate.WithLabelValues(mode).Observe(rate)
	if outcome == OutcomeStopped {
		m.hypoglycemiaStops.Inc()
	}
}

// RecordBolus observes an initial bolus dose.
func (m *Manager) RecordBolus(units float64) {
	if m.enabled {
		m.bolusUnits.Observe(units)
	}
}

// RecordPersistenceEscalation counts an escalated titration.
func (m *Manager) RecordPersistenceEscalation() {
	if m.enabled {
		m.persistenceEscalation.Inc()
	}
}

// RecordValidationError counts a rejected request.
func (m *Manager) RecordValidationError(mode, reason string) {
	if !m.enabled {
		return
	}
	m.calculations.WithLabelValues(mode, OutcomeInvalid).Inc()
	m.validationErrors.WithLabelValues(mode, reason).Inc()
}

// Package-level helpers record on the global manager.

// RecordCalculation counts a calculation on the global manager.
func RecordCalculation(mode, outcome string, glucose, rate float64) {
	globalManager.RecordCalculation(mode, outcome, glucose, rate)
}

// RecordBolus observes an initial bolus dose.
func RecordBolus(units float64) {
	globalManager.RecordBolus(units)
}

// RecordPersistenceEscalation counts an escalated titration.
func RecordPersistenceEscalation() {
	globalManager.RecordPersistenceEscalation()
}

// RecordValidationError counts a rejected request.
func RecordValidationError(mode, reason string) {
	globalManager.RecordValidationError(mode, reason)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request rejected by the limiter.
func RecordRateLimited() {
	globalManager.rateLimited.Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval returns the global manager's gauge refresh period.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
