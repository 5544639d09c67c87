package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Click actions.
const (
	ClickAccepted = "accepted"
	ClickRejected = "rejected"
	ClickUndone   = "undone"
)

// Label actions.
const (
	LabelPlaced  = "placed"
	LabelRemoved = "removed"
)

// Manager manages all Prometheus metrics for blocking input.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Session metrics
	sessions            *prometheus.CounterVec
	sessionDuration     *prometheus.HistogramVec
	activeSubscriptions prometheus.Gauge

	// Event handling
	eventsReceived *prometheus.CounterVec
	clicks         *prometheus.CounterVec
	labels         *prometheus.CounterVec

	// Canvas metrics
	canvasQueueSize     prometheus.Gauge
	canvasEnqueued      prometheus.Counter
	canvasEnqueueErrors *prometheus.CounterVec
	canvasDraws         prometheus.Counter
	eventsDuplicate     prometheus.Counter

	// Interaction jobs
	jobQueueSize     prometheus.Gauge
	jobsEnqueued     prometheus.Counter
	jobEnqueueErrors *prometheus.CounterVec
	jobs             *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec

	// System metrics
	systemMemory     prometheus.Gauge
	systemGoroutines prometheus.Gauge
	systemGCPause    prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
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
		namespace:        "ginput",
		subsystem:        "input",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.sessions = m.counterVec("sessions_total",
		"Blocking input calls by collector and outcome", "collector", "outcome")
	m.sessionDuration = m.histogramVec("session_duration_seconds",
		"Time spent blocked in an input call", "collector")
	m.activeSubscriptions = m.gauge("active_subscriptions",
		"Canvas callbacks currently connected by collectors")

	m.eventsReceived = m.counterVec("events_received_total",
		"Events delivered to collectors by kind", "kind")
	m.clicks = m.counterVec("clicks_total",
		"Click decisions by action", "action")
	m.labels = m.counterVec("labels_total",
		"Contour label changes by action", "action")

	m.canvasQueueSize = m.gauge("canvas_queue_size",
		"Events waiting in the canvas queue")
	m.canvasEnqueued = m.counter("canvas_enqueued_total",
		"Events accepted by the canvas queue")
	m.canvasEnqueueErrors = m.counterVec("canvas_enqueue_errors_total",
		"Events refused by the canvas queue", "reason")
	m.canvasDraws = m.counter("canvas_draws_total",
		"Forced canvas redraws")
	m.eventsDuplicate = m.counter("events_duplicate_total",
		"Posted events dropped as duplicates")

	m.jobQueueSize = m.gauge("job_queue_size",
		"Interaction jobs waiting to run")
	m.jobsEnqueued = m.counter("jobs_enqueued_total",
		"Interaction jobs accepted")
	m.jobEnqueueErrors = m.counterVec("job_enqueue_errors_total",
		"Interaction jobs refused", "reason")
	m.jobs = m.counterVec("jobs_total",
		"Interaction jobs run by mode and status", "mode", "status")
	m.jobDuration = m.histogramVec("job_duration_seconds",
		"Interaction job run time", "mode")

	m.systemMemory = m.gauge("system_memory_bytes",
		"Heap bytes allocated by the process")
	m.systemGoroutines = m.gauge("system_goroutines",
		"Number of live goroutines")
	m.systemGCPause = m.gauge("system_gc_pause_ms",
		"Average GC pause in milliseconds")

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_seconds",
		"HTTP request duration", "endpoint", "method", "status_code")
	m.errorsByEndpoint = m.counterVec("http_errors_total",
		"HTTP errors by endpoint and type", "endpoint", "method", "error_type")
}

// Session Metrics Functions.

// RecordSession records the end of a blocking call.
func RecordSession(collector, outcome string, d time.Duration) {
	globalManager.sessions.WithLabelValues(collector, outcome).Inc()
	globalManager.sessionDuration.WithLabelValues(collector).Observe(d.Seconds())
}

// AddActiveSubscriptions adjusts the live subscription gauge by n.
func AddActiveSubscriptions(n int) {
	globalManager.activeSubscriptions.Add(float64(n))
}

// RecordEventReceived counts an event delivered to a collector.
func RecordEventReceived(kind string) {
	globalManager.eventsReceived.WithLabelValues(kind).Inc()
}

// RecordClick counts a click decision.
func RecordClick(action string) {
	globalManager.clicks.WithLabelValues(action).Inc()
}

// RecordLabel counts a contour label change.
func RecordLabel(action string) {
	globalManager.labels.WithLabelValues(action).Inc()
}

// Canvas Metrics Functions.

// UpdateCanvasQueueSize sets the number of queued canvas events.
func UpdateCanvasQueueSize(size int) {
	globalManager.canvasQueueSize.Set(float64(size))
}

// RecordCanvasEnqueue counts an accepted canvas event.
func RecordCanvasEnqueue() {
	globalManager.canvasEnqueued.Inc()
}

// RecordCanvasEnqueueError counts a refused canvas event.
func RecordCanvasEnqueueError(reason string) {
	globalManager.canvasEnqueueErrors.WithLabelValues(reason).Inc()
}

// RecordCanvasDraw counts a forced redraw.
func RecordCanvasDraw() {
	globalManager.canvasDraws.Inc()
}

// RecordEventDuplicate counts a posted event dropped as duplicate.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// Job Metrics Functions.

// UpdateJobQueueSize sets the number of waiting interaction jobs.
func UpdateJobQueueSize(size int) {
	globalManager.jobQueueSize.Set(float64(size))
}

// RecordJobEnqueue counts an accepted interaction job.
func RecordJobEnqueue() {
	globalManager.jobsEnqueued.Inc()
}

// RecordJobEnqueueError counts a refused interaction job.
func RecordJobEnqueueError(reason string) {
	globalManager.jobEnqueueErrors.WithLabelValues(reason).Inc()
}

// RecordJob records a finished interaction job.
func RecordJob(mode, status string, d time.Duration) {
	globalManager.jobs.WithLabelValues(mode, status).Inc()
	globalManager.jobDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// System Metrics Functions.

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemory.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(n int) {
	globalManager.systemGoroutines.Set(float64(n))
}

// RecordSystemGCPauseTime sets the average GC pause.
func RecordSystemGCPauseTime(ms float64) {
	globalManager.systemGCPause.Set(ms)
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, d time.Duration) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(d.Seconds())
}

// RecordErrorByEndpoint records an HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
