package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthbridge_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "healthbridge_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Sync ingestion
	SyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthbridge_syncs_total",
			Help: "Sync payloads processed, by outcome",
		},
		[]string{"outcome"}, // "ok", "invalid", "persistence_error"
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "healthbridge_sync_duration_seconds",
			Help:    "Time to validate, aggregate and commit one sync payload",
			Buckets: prometheus.DefBuckets,
		},
	)

	SyncRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthbridge_sync_records_total",
			Help: "Detail rows written by syncs",
		},
		[]string{"table"},
	)

	// Nutrition gateway
	GatewayCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthbridge_gateway_calls_total",
			Help: "Nutrition gateway calls, by outcome",
		},
		[]string{"outcome"}, // "ok", "timeout", "canceled", "error", "parse_error", "circuit_open"
	)

	GatewayDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "healthbridge_gateway_duration_seconds",
			Help:    "Nutrition gateway latency in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 90, 120},
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "healthbridge_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthbridge_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Query cache
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "healthbridge_cache_hits_total",
			Help: "Summary cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "healthbridge_cache_misses_total",
			Help: "Summary cache misses",
		},
	)
)

func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordGatewayCall(outcome string, duration time.Duration) {
	GatewayCallsTotal.WithLabelValues(outcome).Inc()
	GatewayDuration.Observe(duration.Seconds())
}
