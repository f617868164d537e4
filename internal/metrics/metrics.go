// Package metrics provides Prometheus metrics for the planner service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CompilesTotal counts compiles by result.
	CompilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scrapeflow",
			Subsystem: "planner",
			Name:      "compiles_total",
			Help:      "Total number of plan compiles by result",
		},
		[]string{"result"}, // "ok", "NO_ENTRY_POINT", "INVALID_INPUTS"
	)

	// CompileDuration tracks compile latency, cache hits included.
	CompileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "scrapeflow",
			Subsystem: "planner",
			Name:      "compile_duration_seconds",
			Help:      "Plan compile duration in seconds",
			Buckets:   []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
		},
	)

	// PlanPhases tracks the number of phases in successful plans.
	PlanPhases = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "scrapeflow",
			Subsystem: "planner",
			Name:      "plan_phases",
			Help:      "Number of phases per compiled plan",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		},
	)

	// PlanCacheTotal counts plan cache lookups.
	PlanCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scrapeflow",
			Subsystem: "planner",
			Name:      "plan_cache_total",
			Help:      "Plan cache lookups by outcome",
		},
		[]string{"outcome"}, // "hit", "miss"
	)

	// EdgeChecksTotal counts connectivity checks by outcome.
	EdgeChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scrapeflow",
			Subsystem: "planner",
			Name:      "edge_checks_total",
			Help:      "Total number of edge connectivity checks",
		},
		[]string{"outcome"}, // "allowed" or a rejection reason
	)

	// VersionStoreOperations counts version store operations.
	VersionStoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scrapeflow",
			Subsystem: "planner",
			Name:      "versionstore_operations_total",
			Help:      "Total number of version store operations",
		},
		[]string{"operation", "result"}, // operation: create, get, list, activate; result: success, error
	)

	// PublishesTotal counts plan publishes.
	PublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scrapeflow",
			Subsystem: "planner",
			Name:      "publishes_total",
			Help:      "Total number of plan publishes",
		},
		[]string{"result"},
	)

	// EditorConnections tracks open editor WebSocket sessions.
	EditorConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "scrapeflow",
			Subsystem: "planner",
			Name:      "editor_connections",
			Help:      "Number of open editor WebSocket connections",
		},
	)

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scrapeflow",
			Subsystem: "planner",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scrapeflow",
			Subsystem: "planner",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// StoreResult maps an error to the result label used by VersionStoreOperations.
func StoreResult(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
