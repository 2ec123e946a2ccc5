// Package metrics provides Prometheus metrics for the huematch engine.
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

// scanBuckets counts palette records visited by one linear scan.
var scanBuckets = prometheus.ExponentialBuckets(16, 4, 7) //nolint:gochecknoglobals // fixed bucket layout

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	auto promauto.Factory

	// Lookup metrics
	matchesTotal   *prometheus.CounterVec
	matchLatency   *prometheus.HistogramVec
	matchBusy      prometheus.Counter
	matchCacheHits prometheus.Counter
	matchFallbacks *prometheus.CounterVec
	reportsDropped prometheus.Counter

	// Palette and index metrics
	paletteRecords     prometheus.Gauge
	paletteLoadErrors  *prometheus.CounterVec
	linearScanLatency  prometheus.Histogram
	linearScanRecords  prometheus.Histogram
	indexBuildDuration prometheus.Histogram
	indexNodes         prometheus.Gauge
	indexMemoryBytes   prometheus.Gauge
	indexBuildFailures *prometheus.CounterVec

	// Calibration metrics
	calibrationCaptures *prometheus.CounterVec
	calibrationFailures *prometheus.CounterVec
	calibrated          prometheus.Gauge

	// Exposure metrics
	exposureAdjustments   *prometheus.CounterVec
	integrationTime       prometheus.Gauge
	saturationRatio       prometheus.Gauge
	brightnessAdjustments *prometheus.CounterVec

	// Sensor and cycle metrics
	sensorReads       prometheus.Counter
	sensorErrors      *prometheus.CounterVec
	sensorReadLatency prometheus.Histogram
	cycles            *prometheus.CounterVec
	cycleDuration     prometheus.Histogram

	// Storage and publishing metrics
	storageOperations *prometheus.CounterVec
	storageLatency    *prometheus.HistogramVec
	published         *prometheus.CounterVec
	publishErrors     *prometheus.CounterVec

	// Report queue metrics
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Report worker metrics
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// HTTP control surface metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorRateByComponent *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "huematch",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}
	if !m.enabled {
		m.registry = prometheus.NewRegistry()
	}

	m.auto = promauto.With(m.registry)
	m.initializeMetrics()

	return m
}

// RefreshInterval returns how often callers should refresh gauges.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return m.auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return m.auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return m.auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return m.auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return m.auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		ConstLabels: m.customLabels, Buckets: buckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	b := m.histogramBuckets

	m.matchesTotal = m.counterVec("matches_total", "Colour lookups by search path", "method")
	m.matchLatency = m.histogramVec("match_latency_milliseconds", "Colour lookup latency by search path", b, "method")
	m.matchBusy = m.counter("match_busy_total", "Lookups rejected because another was running")
	m.matchCacheHits = m.counter("match_cache_hits_total", "Lookups answered from the debounce cache")
	m.matchFallbacks = m.counterVec("match_fallbacks_total", "Search paths that failed and fell through", "from")
	m.reportsDropped = m.counter("reports_dropped_total", "Lookup reports dropped because the queue was full")

	m.paletteRecords = m.gauge("palette_records", "Records in the loaded palette")
	m.paletteLoadErrors = m.counterVec("palette_load_errors_total", "Palette load failures", "kind")
	m.linearScanLatency = m.histogram("linear_scan_latency_milliseconds", "Linear palette scan latency", b)
	m.linearScanRecords = m.histogram("linear_scan_records", "Records visited by one linear scan", scanBuckets)
	m.indexBuildDuration = m.histogram("index_build_duration_milliseconds", "Spatial index build time", b)
	m.indexNodes = m.gauge("index_nodes", "Nodes in the spatial index")
	m.indexMemoryBytes = m.gauge("index_memory_bytes", "Estimated spatial index memory")
	m.indexBuildFailures = m.counterVec("index_build_failures_total", "Spatial index build failures", "reason")

	m.calibrationCaptures = m.counterVec("calibration_captures_total", "Accepted calibration steps", "step")
	m.calibrationFailures = m.counterVec("calibration_failures_total", "Rejected calibration steps", "step", "reason")
	m.calibrated = m.gauge("calibrated", "1 when black and white references are valid")

	m.exposureAdjustments = m.counterVec("exposure_adjustments_total", "Integration time changes", "direction")
	m.integrationTime = m.gauge("integration_time_milliseconds", "Current sensor integration time")
	m.saturationRatio = m.gauge("saturation_ratio", "Moving mean of brightest channel over saturation threshold")
	m.brightnessAdjustments = m.counterVec("brightness_adjustments_total", "Illumination level changes", "direction")

	m.sensorReads = m.counter("sensor_reads_total", "Raw samples read")
	m.sensorErrors = m.counterVec("sensor_errors_total", "Sensor transport errors", "op")
	m.sensorReadLatency = m.histogram("sensor_read_latency_milliseconds", "Latency of one raw sample read", b)
	m.cycles = m.counterVec("cycles_total", "Measurement cycles by outcome", "outcome")
	m.cycleDuration = m.histogram("cycle_duration_milliseconds", "Duration of one measurement cycle", b)

	m.storageOperations = m.counterVec("storage_operations_total", "Storage operations", "op")
	m.storageLatency = m.histogramVec("storage_latency_milliseconds", "Storage operation latency", b, "op")
	m.published = m.counterVec("reports_published_total", "Reports delivered by sink", "sink")
	m.publishErrors = m.counterVec("publish_errors_total", "Report delivery failures by sink", "sink")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request latency", b, "endpoint", "method")

	m.queueSize = m.gauge("queue_size", "Reports waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Report queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Report queue fill ratio")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Reports enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Reports dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Reports rejected by the queue")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Enqueue latency", b)

	m.workerActiveCount = m.gauge("worker_active_count", "Report workers running")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time to deliver one report", b)
	m.workerErrorRate = m.counter("worker_errors_total", "Report worker errors")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Goroutines running")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Most recent GC pause", b)
}

// Lookup Metrics Functions.

// RecordMatch records a completed lookup.
func RecordMatch(method string, latencyMs float64) {
	globalManager.matchesTotal.WithLabelValues(method).Inc()
	globalManager.matchLatency.WithLabelValues(method).Observe(latencyMs)
}

// RecordMatchBusy counts a rejected overlapping lookup.
func RecordMatchBusy() {
	globalManager.matchBusy.Inc()
}

// RecordMatchCacheHit counts a lookup served from cache.
func RecordMatchCacheHit() {
	globalManager.matchCacheHits.Inc()
}

// RecordMatchFallback counts a search path that produced nothing.
func RecordMatchFallback(from string) {
	globalManager.matchFallbacks.WithLabelValues(from).Inc()
}

// RecordReportDropped counts a report the queue refused.
func RecordReportDropped() {
	globalManager.reportsDropped.Inc()
}

// Palette and Index Metrics Functions.

// UpdatePaletteRecords sets the palette size.
func UpdatePaletteRecords(count int) {
	globalManager.paletteRecords.Set(float64(count))
}

// RecordPaletteLoadError counts a palette that could not be used.
func RecordPaletteLoadError(kind string) {
	globalManager.paletteLoadErrors.WithLabelValues(kind).Inc()
}

// RecordLinearScan records one linear scan.
func RecordLinearScan(latencyMs float64, scanned int) {
	globalManager.linearScanLatency.Observe(latencyMs)
	globalManager.linearScanRecords.Observe(float64(scanned))
}

// RecordIndexBuild records a successful index build.
func RecordIndexBuild(durationMs float64, nodes, bytes int) {
	globalManager.indexBuildDuration.Observe(durationMs)
	globalManager.indexNodes.Set(float64(nodes))
	globalManager.indexMemoryBytes.Set(float64(bytes))
}

// RecordIndexBuildFailure counts a failed index build.
func RecordIndexBuildFailure(reason string) {
	globalManager.indexBuildFailures.WithLabelValues(reason).Inc()
}

// Calibration Metrics Functions.

// RecordCalibrationCapture counts an accepted calibration step.
func RecordCalibrationCapture(step string) {
	globalManager.calibrationCaptures.WithLabelValues(step).Inc()
}

// RecordCalibrationFailure counts a rejected calibration step.
func RecordCalibrationFailure(step, reason string) {
	globalManager.calibrationFailures.WithLabelValues(step, reason).Inc()
}

// UpdateCalibrated sets the calibrated flag.
func UpdateCalibrated(ok bool) {
	v := 0.0
	if ok {
		v = 1
	}
	globalManager.calibrated.Set(v)
}

// Exposure Metrics Functions.

// RecordExposureAdjustment counts an integration time change.
func RecordExposureAdjustment(direction string) {
	globalManager.exposureAdjustments.WithLabelValues(direction).Inc()
}

// UpdateIntegrationTime sets the integration time gauge.
func UpdateIntegrationTime(ms float64) {
	globalManager.integrationTime.Set(ms)
}

// UpdateSaturationRatio sets the saturation ratio gauge.
func UpdateSaturationRatio(ratio float64) {
	globalManager.saturationRatio.Set(ratio)
}

// RecordBrightnessAdjustment counts an illumination change.
func RecordBrightnessAdjustment(direction string) {
	globalManager.brightnessAdjustments.WithLabelValues(direction).Inc()
}

// Sensor and Cycle Metrics Functions.

// RecordSensorRead records one raw sample read.
func RecordSensorRead(latencyMs float64) {
	globalManager.sensorReads.Inc()
	globalManager.sensorReadLatency.Observe(latencyMs)
}

// RecordSensorError counts a sensor transport error.
func RecordSensorError(op string) {
	globalManager.sensorErrors.WithLabelValues(op).Inc()
}

// RecordCycle records one measurement cycle.
func RecordCycle(outcome string, durationMs float64) {
	globalManager.cycles.WithLabelValues(outcome).Inc()
	globalManager.cycleDuration.Observe(durationMs)
}

// Storage and Publishing Metrics Functions.

// RecordStorageOperation records a storage call.
func RecordStorageOperation(op string, latencyMs float64) {
	globalManager.storageOperations.WithLabelValues(op).Inc()
	globalManager.storageLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordPublish counts a delivered report.
func RecordPublish(sink string) {
	globalManager.published.WithLabelValues(sink).Inc()
}

// RecordPublishError counts a failed delivery.
func RecordPublishError(sink string) {
	globalManager.publishErrors.WithLabelValues(sink).Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(endpoint, method, status string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(durationMs)
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System Performance Metrics Functions.

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

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
