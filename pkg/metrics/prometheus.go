// Package metrics provides Prometheus metrics for the PenaltyHub service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds every collector the service exposes.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Fine engine and match lifecycle
	updatesApplied      prometheus.Counter
	updatesDuplicate    prometheus.Counter
	finesCalculated     prometheus.Counter
	calculationLatency  prometheus.Histogram
	matchesClosed       prometheus.Counter
	transactionsCreated prometheus.Counter
	betsSettled         prometheus.Counter
	rulesTotal          prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Repository
	repositoryLatency *prometheus.HistogramVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueTotal  prometheus.Counter
	queueDequeueTotal  prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	dedupeSize prometheus.Gauge

	// Process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Gauge

	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level recorders

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // scraped by /healthz

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "penaltyhub",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
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
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.updatesApplied = m.counter("updates_applied_total", "Participant updates applied to a match")
	m.updatesDuplicate = m.counter("updates_duplicate_total", "Participant updates dropped as duplicates")
	m.finesCalculated = m.counter("fines_calculated_total", "Fine recalculations performed")
	m.calculationLatency = m.histogram("fine_calculation_latency_milliseconds", "Fine recalculation latency in milliseconds")
	m.matchesClosed = m.counter("matches_closed_total", "Matches closed and settled")
	m.transactionsCreated = m.counter("transactions_created_total", "Ledger transactions created")
	m.betsSettled = m.counter("bets_settled_total", "Bets settled")
	m.rulesTotal = m.gauge("rules_total", "Rules in the global catalogue")

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.repositoryLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "repository_latency_milliseconds",
			Help:      "Repository operation latency in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"operation"},
	)

	m.queueSize = m.gauge("queue_size", "Updates waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization (0.0 to 1.0)")
	m.queueEnqueueTotal = m.counter("queue_enqueue_total", "Updates enqueued")
	m.queueDequeueTotal = m.counter("queue_dequeue_total", "Updates dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Updates refused by the queue")

	m.workerCount = m.gauge("worker_count", "Workers in the pool")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently applying an update")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Update application latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Updates that failed to apply")

	m.dedupeSize = m.gauge("dedupe_size", "Update ids remembered by the deduper")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Live goroutines")
	m.systemGCPauseTime = m.gauge("system_gc_pause_milliseconds", "Average GC pause in milliseconds")

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Errors by component",
		},
		[]string{"component", "error_type"},
	)
}

// RecordUpdateApplied counts a participant update applied to a match.
func RecordUpdateApplied() { globalManager.updatesApplied.Inc() }

// RecordUpdateDuplicate counts a duplicate update.
func RecordUpdateDuplicate() { globalManager.updatesDuplicate.Inc() }

// RecordFineCalculation counts a recalculation and its latency.
func RecordFineCalculation(latencyMs float64) {
	globalManager.finesCalculated.Inc()
	globalManager.calculationLatency.Observe(latencyMs)
}

// RecordMatchClosed counts a closed match.
func RecordMatchClosed() { globalManager.matchesClosed.Inc() }

// RecordTransactions adds n created ledger transactions.
func RecordTransactions(n int) { globalManager.transactionsCreated.Add(float64(n)) }

// RecordBetSettled counts a settled bet.
func RecordBetSettled() { globalManager.betsSettled.Inc() }

// UpdateRulesTotal sets the catalogue size.
func UpdateRulesTotal(n int) { globalManager.rulesTotal.Set(float64(n)) }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRepositoryLatency records the latency of a repository operation.
func RecordRepositoryLatency(operation string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue counts an enqueue.
func RecordQueueEnqueue() { globalManager.queueEnqueueTotal.Inc() }

// RecordQueueDequeue counts a dequeue.
func RecordQueueDequeue() { globalManager.queueDequeueTotal.Inc() }

// RecordQueueEnqueueError counts a refused enqueue.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// UpdateWorkerCount sets the pool size.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records how long an update took to apply.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts an update that failed to apply.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// UpdateDedupeSize sets the number of remembered update ids.
func UpdateDedupeSize(size int64) { globalManager.dedupeSize.Set(float64(size)) }

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutineCount.Set(float64(n)) }

// RecordSystemGCPauseTime sets the average GC pause.
func RecordSystemGCPauseTime(ms float64) { globalManager.systemGCPauseTime.Set(ms) }

// RecordErrorByComponent records an error by component and type.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
