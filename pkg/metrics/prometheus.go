// Package metrics provides Prometheus metrics for the fire weather service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultFWIBuckets follow the danger class boundaries so the histogram reads
// as a class distribution.
var DefaultFWIBuckets = []float64{1, 5.2, 11.2, 21.3, 38, 50, 75, 100} //nolint:gochecknoglobals // read-only bucket table

// Manager manages all Prometheus metrics for the fire weather service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	fwiBuckets     []float64
	constLabels    prometheus.Labels
	registry       prometheus.Registerer
	auto           promauto.Factory

	// Observation intake
	observationsReceived  prometheus.Counter
	observationsDuplicate prometheus.Counter
	observationsRejected  *prometheus.CounterVec

	// Calculations
	calculations       *prometheus.CounterVec
	calculationErrors  *prometheus.CounterVec
	calculationLatency prometheus.Histogram
	fwiValue           prometheus.Histogram
	dangerClass        *prometheus.CounterVec
	stationsTracked    prometheus.Gauge

	// Repository
	repositoryShardCount    prometheus.Gauge
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	queueWaitLatency   prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// MQTT
	mqttConnected         prometheus.Gauge
	mqttMessagesReceived  prometheus.Counter
	mqttMessagesPublished prometheus.Counter
	mqttErrors            *prometheus.CounterVec

	// Errors by component
	errorsByComponent *prometheus.CounterVec

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

// NewManager creates a new metrics manager and registers its collectors on
// the configured registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "fwi",
		subsystem:      "service",
		latencyBuckets: prometheus.DefBuckets,
		fwiBuckets:     DefaultFWIBuckets,
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.auto = promauto.With(m.registry)
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return m.auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return m.auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return m.auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return m.auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.observationsReceived = m.counter("observations_received_total",
		"Total number of observations accepted for processing")
	m.observationsDuplicate = m.counter("observations_duplicate_total",
		"Total number of observations dropped as duplicates")
	m.observationsRejected = m.counterVec("observations_rejected_total",
		"Total number of observations rejected, by reason", "reason")

	m.calculations = m.counterVec("calculations_total",
		"Total number of successful daily calculations, by source", "source")
	m.calculationErrors = m.counterVec("calculation_errors_total",
		"Total number of failed daily calculations, by error kind", "kind")
	m.calculationLatency = m.histogram("calculation_latency_milliseconds",
		"Daily calculation latency in milliseconds", m.latencyBuckets)
	m.fwiValue = m.histogram("fwi_value",
		"Distribution of computed Fire Weather Index values", m.fwiBuckets)
	m.dangerClass = m.counterVec("danger_class_total",
		"Total number of computed days per danger class", "class")
	m.stationsTracked = m.gauge("stations_tracked",
		"Number of stations with carried moisture state")

	m.repositoryShardCount = m.gauge("repository_shard_count",
		"Total number of station store shards")
	m.repositoryUpdateLatency = m.histogram("repository_update_latency_milliseconds",
		"Station store update latency in milliseconds", m.latencyBuckets)
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds",
		"Station store query latency in milliseconds", m.latencyBuckets)

	m.queueSize = m.gauge("queue_size", "Current number of queued observations")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (size / capacity)")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total number of enqueued observations")
	m.queueDequeued = m.counter("queue_dequeue_total", "Total number of dequeued observations")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total",
		"Total number of observations rejected because the queue was full or closed")
	m.queueWaitLatency = m.histogram("queue_wait_milliseconds",
		"Time observations spend queued before a worker picks them up", m.latencyBuckets)

	m.workerCount = m.gauge("worker_count", "Configured number of workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Number of workers currently processing")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Worker processing latency in milliseconds", m.latencyBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Total number of worker processing errors")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.mqttConnected = m.gauge("mqtt_connected", "1 when the MQTT client is connected")
	m.mqttMessagesReceived = m.counter("mqtt_messages_received_total", "Total number of MQTT observation messages received")
	m.mqttMessagesPublished = m.counter("mqtt_messages_published_total", "Total number of MQTT index messages published")
	m.mqttErrors = m.counterVec("mqtt_errors_total", "Total number of MQTT errors, by operation", "op")

	m.errorsByComponent = m.counterVec("errors_total",
		"Total number of errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "GC pause time in milliseconds", m.latencyBuckets)
}

// Observation intake.

// RecordObservationReceived increments the accepted observations counter.
func RecordObservationReceived() {
	globalManager.observationsReceived.Inc()
}

// RecordObservationDuplicate increments the duplicate observations counter.
func RecordObservationDuplicate() {
	globalManager.observationsDuplicate.Inc()
}

// RecordObservationRejected counts a rejected observation under reason.
func RecordObservationRejected(reason string) {
	globalManager.observationsRejected.WithLabelValues(reason).Inc()
}

// Calculations.

// RecordCalculation counts one successful day computed on behalf of source.
func RecordCalculation(source string) {
	globalManager.calculations.WithLabelValues(source).Inc()
}

// RecordCalculationError counts a failed calculation by error kind.
func RecordCalculationError(kind string) {
	globalManager.calculationErrors.WithLabelValues(kind).Inc()
}

// RecordCalculationLatency records calculation latency.
func RecordCalculationLatency(latencyMs float64) {
	globalManager.calculationLatency.Observe(latencyMs)
}

// RecordFWIValue observes a computed FWI and its danger class.
func RecordFWIValue(fwi float64, class string) {
	globalManager.fwiValue.Observe(fwi)
	globalManager.dangerClass.WithLabelValues(class).Inc()
}

// UpdateStationsTracked sets the number of tracked stations.
func UpdateStationsTracked(count int) {
	globalManager.stationsTracked.Set(float64(count))
}

// Repository.

// UpdateRepositoryShardCount sets the total number of store shards.
func UpdateRepositoryShardCount(count int) {
	globalManager.repositoryShardCount.Set(float64(count))
}

// RecordRepositoryUpdateLatency records store update latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records store query latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// Queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueWaitLatency records how long an observation waited in the queue.
func RecordQueueWaitLatency(latencyMs float64) {
	globalManager.queueWaitLatency.Observe(latencyMs)
}

// Workers.

// UpdateWorkerCount sets the configured number of workers.
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

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// MQTT.

// UpdateMQTTConnected records the broker connection state.
func UpdateMQTTConnected(connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	globalManager.mqttConnected.Set(v)
}

// RecordMQTTMessageReceived increments the received message counter.
func RecordMQTTMessageReceived() {
	globalManager.mqttMessagesReceived.Inc()
}

// RecordMQTTMessagePublished increments the published message counter.
func RecordMQTTMessagePublished() {
	globalManager.mqttMessagesPublished.Inc()
}

// RecordMQTTError counts a failed MQTT operation.
func RecordMQTTError(op string) {
	globalManager.mqttErrors.WithLabelValues(op).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the heap memory in use.
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

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
