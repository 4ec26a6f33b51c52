package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chiron_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chiron_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chiron_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Bundle lifecycle metrics
	BundleCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chiron_bundle_cache_hits_total",
			Help: "Total bundle cache hits by layer",
		},
		[]string{"layer"}, // layer: redis|postgres
	)

	BundleCacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chiron_bundle_cache_misses_total",
			Help: "Total bundle cache misses by layer",
		},
		[]string{"layer"},
	)

	BundleRecomputations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chiron_bundle_recomputations_total",
			Help: "Total bundle recomputations by outcome",
		},
		[]string{"outcome"}, // outcome: success|insufficient_data|no_price|history_error|persistence_error
	)

	BundleComputeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chiron_bundle_compute_duration_seconds",
			Help:    "Full pipeline duration from raw bars to persisted bundle",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	ActiveBundles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chiron_active_bundles",
			Help: "Number of instruments carrying an active bundle",
		},
	)

	// Narrative annotator metrics
	NarrativeCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chiron_narrative_calls_total",
			Help: "Total narrative annotator calls",
		},
		[]string{"status"}, // status: success|error|skipped
	)

	NarrativeLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chiron_narrative_latency_seconds",
			Help:    "Narrative annotator latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	NarrativeBreakerTrips = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chiron_narrative_breaker_trips_total",
			Help: "Total narrative circuit breaker activations",
		},
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chiron_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"}, // database: postgres|clickhouse|redis
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chiron_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"database", "operation"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)

	prometheus.MustRegister(BundleCacheHits)
	prometheus.MustRegister(BundleCacheMisses)
	prometheus.MustRegister(BundleRecomputations)
	prometheus.MustRegister(BundleComputeDuration)
	prometheus.MustRegister(ActiveBundles)

	prometheus.MustRegister(NarrativeCalls)
	prometheus.MustRegister(NarrativeLatency)
	prometheus.MustRegister(NarrativeBreakerTrips)

	prometheus.MustRegister(DBQueries)
	prometheus.MustRegister(DBQueryDuration)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordDBQuery records a database query
func RecordDBQuery(database, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	DBQueries.WithLabelValues(database, operation, status).Inc()
	DBQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// RecordNarrativeCall records a narrative annotator invocation
func RecordNarrativeCall(latency time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	NarrativeCalls.WithLabelValues(status).Inc()
	NarrativeLatency.Observe(latency.Seconds())
}
