// Package metrics provides Prometheus metrics for the segmentation scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dice scores live in [0,1]; finer resolution near the top end where
// contestants compete.
var scoreBuckets = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 0.98, 0.99, 1.0}

// Upload sizes up to the default 1 MiB cap and beyond.
var uploadBuckets = prometheus.ExponentialBuckets(1024, 2, 12)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Scoring
	submissions       *prometheus.CounterVec
	scoringLatency    prometheus.Histogram
	submissionScore   prometheus.Histogram
	subjectScore      prometheus.Histogram
	uploadBytes       prometheus.Histogram
	referenceSubjects prometheus.Gauge

	// Leaderboard
	contestants      prometheus.Gauge
	leaderboardReads prometheus.Counter
	storeErrors      *prometheus.CounterVec

	// Write queue / writer
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueErrors *prometheus.CounterVec
	writerLatency      prometheus.Histogram
	writerCount        prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	rateLimited         prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "segscore",
		subsystem:        "dice",
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

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.submissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "submissions_total",
		Help:        "Submissions handled, by outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "scoring_latency_ms",
		Help:        "Time spent decoding and scoring a submission in milliseconds",
		Buckets:     prometheus.ExponentialBuckets(1, 2, 14),
		ConstLabels: constLabels,
	})

	m.submissionScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "submission_score",
		Help:        "Distribution of overall submission Dice scores",
		Buckets:     scoreBuckets,
		ConstLabels: constLabels,
	})

	m.subjectScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "subject_score",
		Help:        "Distribution of per-subject macro Dice scores",
		Buckets:     scoreBuckets,
		ConstLabels: constLabels,
	})

	m.uploadBytes = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "upload_bytes",
		Help:        "Size of accepted upload archives",
		Buckets:     uploadBuckets,
		ConstLabels: constLabels,
	})

	m.referenceSubjects = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "reference_subjects",
		Help:        "Number of subjects in the loaded reference set",
		ConstLabels: constLabels,
	})

	m.contestants = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "leaderboard",
		Name:        "contestants",
		Help:        "Distinct contestant names on the leaderboard",
		ConstLabels: constLabels,
	})

	m.leaderboardReads = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "leaderboard",
		Name:        "reads_total",
		Help:        "Leaderboard rankings computed from the store",
		ConstLabels: constLabels,
	})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "leaderboard",
		Name:        "store_errors_total",
		Help:        "Leaderboard store failures by operation",
		ConstLabels: constLabels,
	}, []string{"operation"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "queue",
		Name:        "size",
		Help:        "Pending leaderboard writes",
		ConstLabels: constLabels,
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "queue",
		Name:        "capacity",
		Help:        "Capacity of the leaderboard write queue",
		ConstLabels: constLabels,
	})

	m.queueEnqueueErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "queue",
		Name:        "enqueue_errors_total",
		Help:        "Rejected leaderboard writes by reason",
		ConstLabels: constLabels,
	}, []string{"reason"})

	m.writerLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "writer",
		Name:        "append_latency_ms",
		Help:        "Time spent appending a record to the store",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})

	m.writerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "writer",
		Name:        "count",
		Help:        "Running leaderboard writers",
		ConstLabels: constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "HTTP requests by endpoint, method and status",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "request_duration_ms",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     prometheus.ExponentialBuckets(1, 2, 14),
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "errors",
		Name:        "by_type_total",
		Help:        "Errors by type and severity",
		ConstLabels: constLabels,
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "errors",
		Name:        "by_endpoint_total",
		Help:        "Errors by endpoint",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.rateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "rate_limited_total",
		Help:        "Submissions rejected by the rate limiter",
		ConstLabels: constLabels,
	})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "memory_bytes",
		Help:        "Allocated heap bytes",
		ConstLabels: constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "goroutines",
		Help:        "Number of goroutines",
		ConstLabels: constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "gc_pause_ms",
		Help:        "Average GC pause in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})
}

// Enabled reports whether the manager records observations.
func (m *Manager) Enabled() bool { return m.enabled }

// Submission outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
	OutcomeDuplicate = "duplicate"
)

// RecordSubmission counts a submission by outcome.
func RecordSubmission(outcome string) {
	if globalManager.enabled {
		globalManager.submissions.WithLabelValues(outcome).Inc()
	}
}

// RecordScoringLatency observes decode+score time.
func RecordScoringLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.scoringLatency.Observe(latencyMs)
	}
}

// RecordSubmissionScore observes an overall score.
func RecordSubmissionScore(score float64) {
	if globalManager.enabled {
		globalManager.submissionScore.Observe(score)
	}
}

// RecordSubjectScore observes a per-subject score.
func RecordSubjectScore(score float64) {
	if globalManager.enabled {
		globalManager.subjectScore.Observe(score)
	}
}

// RecordUploadBytes observes an accepted upload size.
func RecordUploadBytes(n int64) {
	if globalManager.enabled {
		globalManager.uploadBytes.Observe(float64(n))
	}
}

// UpdateReferenceSubjects sets the reference subject count.
func UpdateReferenceSubjects(n int) {
	if globalManager.enabled {
		globalManager.referenceSubjects.Set(float64(n))
	}
}

// UpdateContestants sets the number of ranked contestants.
func UpdateContestants(n int) {
	if globalManager.enabled {
		globalManager.contestants.Set(float64(n))
	}
}

// RecordLeaderboardRead counts a ranking computation.
func RecordLeaderboardRead() {
	if globalManager.enabled {
		globalManager.leaderboardReads.Inc()
	}
}

// RecordStoreError counts a store failure for operation.
func RecordStoreError(operation string) {
	if globalManager.enabled {
		globalManager.storeErrors.WithLabelValues(operation).Inc()
	}
}

// UpdateQueueSize sets the pending write count.
func UpdateQueueSize(size int) {
	if globalManager.enabled {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the write queue capacity.
func UpdateQueueCapacity(capacity int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// RecordQueueEnqueueError counts a rejected write.
func RecordQueueEnqueueError(reason string) {
	if globalManager.enabled {
		globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
	}
}

// RecordWriterLatency observes one store append.
func RecordWriterLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.writerLatency.Observe(latencyMs)
	}
}

// UpdateWriterCount sets the number of running writers.
func UpdateWriterCount(n int) {
	if globalManager.enabled {
		globalManager.writerCount.Set(float64(n))
	}
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration observes request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByType counts an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	if globalManager.enabled {
		globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint counts an error by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// RecordRateLimited counts a throttled submission.
func RecordRateLimited() {
	if globalManager.enabled {
		globalManager.rateLimited.Inc()
	}
}

// UpdateSystemMemoryUsage sets allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	if globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime observes average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	if globalManager.enabled {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
