// Package metrics provides Prometheus metrics for the kinetica service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	scoreBuckets     []float64
	registry         prometheus.Registerer

	// Pipeline
	framesProcessed  *prometheus.CounterVec
	framesDuplicate  prometheus.Counter
	framesDropped    *prometheus.CounterVec
	frameLatency     prometheus.Histogram
	repsCompleted    *prometheus.CounterVec
	repScore         prometheus.Histogram
	compensations    *prometheus.CounterVec
	violations       *prometheus.CounterVec
	calibrations     prometheus.Counter
	activeSessions   prometheus.Gauge
	feedbackMessages *prometheus.CounterVec

	// Leaderboard
	leaderboardSize         prometheus.Gauge
	leaderboardUpdates      prometheus.Counter
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Outbound
	publishes     *prometheus.CounterVec
	publishErrors *prometheus.CounterVec
	streamClients prometheus.Gauge
	streamDropped prometheus.Counter

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry carrying the service collectors plus runtime and process stats.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	customRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "kinetica",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		scoreBuckets:     prometheus.LinearBuckets(10, 10, 10),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.framesProcessed = m.counterVec("frames_processed_total", "Frames run through the pipeline by outcome", "status")
	m.framesDuplicate = m.counter("frames_duplicate_total", "Frames rejected as duplicates")
	m.framesDropped = m.counterVec("frames_dropped_total", "Frames dropped before processing", "reason")
	m.frameLatency = m.histogram("frame_latency_milliseconds", "Per-frame pipeline latency in milliseconds", m.histogramBuckets)
	m.repsCompleted = m.counterVec("reps_completed_total", "Completed repetitions by exercise", "exercise")
	m.repScore = m.histogram("rep_score", "Overall score of completed repetitions", m.scoreBuckets)
	m.compensations = m.counterVec("compensations_total", "Detected compensations", "type", "severity")
	m.violations = m.counterVec("constraint_violations_total", "Anatomical constraint violations", "severity")
	m.calibrations = m.counter("calibrations_completed_total", "Calibrations that produced a profile")
	m.activeSessions = m.gauge("active_sessions", "Live analysis sessions")
	m.feedbackMessages = m.counterVec("feedback_messages_total", "Coaching feedback emitted by priority", "priority")

	m.leaderboardSize = m.gauge("leaderboard_size", "Sessions ranked on the leaderboard")
	m.leaderboardUpdates = m.counter("leaderboard_updates_total", "Leaderboard score updates")
	m.repositoryUpdateLatency = m.histogram("repository_update_latency_milliseconds", "Leaderboard update latency in milliseconds", m.histogramBuckets)
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds", "Leaderboard query latency in milliseconds", m.histogramBuckets)

	m.queueSize = m.gauge("queue_size", "Frames waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Total queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue fill ratio")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Frames enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Frames dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Enqueue failures")

	m.workerCount = m.gauge("worker_count", "Configured workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently processing a frame")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Worker processing errors")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.publishes = m.counterVec("mqtt_publishes_total", "MQTT messages published by kind", "kind")
	m.publishErrors = m.counterVec("mqtt_publish_errors_total", "MQTT publish failures by kind", "kind")
	m.streamClients = m.gauge("stream_clients", "Connected live stream clients")
	m.streamDropped = m.counter("stream_dropped_total", "Stream messages dropped for slow clients")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
}

// RecordFrameProcessed counts a frame handled by the pipeline.
func RecordFrameProcessed(status string) {
	globalManager.framesProcessed.WithLabelValues(status).Inc()
}

// RecordFrameDuplicate counts a duplicate frame.
func RecordFrameDuplicate() {
	globalManager.framesDuplicate.Inc()
}

// RecordFrameDropped counts a frame dropped before processing.
func RecordFrameDropped(reason string) {
	globalManager.framesDropped.WithLabelValues(reason).Inc()
}

// RecordFrameLatency records per-frame pipeline latency.
func RecordFrameLatency(latencyMs float64) {
	globalManager.frameLatency.Observe(latencyMs)
}

// RecordRepCompleted counts a completed repetition and observes its score.
func RecordRepCompleted(exercise string, score float64) {
	globalManager.repsCompleted.WithLabelValues(exercise).Inc()
	globalManager.repScore.Observe(score)
}

// RecordCompensation counts a detected compensation.
func RecordCompensation(kind, severity string) {
	globalManager.compensations.WithLabelValues(kind, severity).Inc()
}

// RecordConstraintViolation counts an anatomical constraint violation.
func RecordConstraintViolation(severity string) {
	globalManager.violations.WithLabelValues(severity).Inc()
}

// RecordCalibrationCompleted counts a captured calibration profile.
func RecordCalibrationCompleted() {
	globalManager.calibrations.Inc()
}

// UpdateActiveSessions sets the live session count.
func UpdateActiveSessions(count int) {
	globalManager.activeSessions.Set(float64(count))
}

// RecordFeedback counts an emitted feedback message.
func RecordFeedback(priority string) {
	globalManager.feedbackMessages.WithLabelValues(priority).Inc()
}

// UpdateLeaderboardSize sets the number of ranked sessions.
func UpdateLeaderboardSize(count int) {
	globalManager.leaderboardSize.Set(float64(count))
}

// RecordLeaderboardUpdate counts a leaderboard score update.
func RecordLeaderboardUpdate() {
	globalManager.leaderboardUpdates.Inc()
}

// RecordRepositoryUpdateLatency records leaderboard update latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records leaderboard query latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue depth.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts an enqueued frame.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a dequeued frame.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts an enqueue failure.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a worker processing error.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordPublish counts a published MQTT message.
func RecordPublish(kind string) {
	globalManager.publishes.WithLabelValues(kind).Inc()
}

// RecordPublishError counts a failed MQTT publish.
func RecordPublishError(kind string) {
	globalManager.publishErrors.WithLabelValues(kind).Inc()
}

// UpdateStreamClients sets the number of live stream clients.
func UpdateStreamClients(count int) {
	globalManager.streamClients.Set(float64(count))
}

// RecordStreamDropped counts a message dropped for a slow stream client.
func RecordStreamDropped() {
	globalManager.streamDropped.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
