// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stream outcomes used as the "outcome" label of StreamsFinished.
const (
	OutcomeComplete  = "complete"
	OutcomeStopped   = "stopped"
	OutcomeError     = "error"
	OutcomeAbandoned = "abandoned"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// StreamsStarted counts simulated response streams started.
	StreamsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streams_started_total",
			Help: "Total simulated response streams started",
		},
	)

	// StreamsFinished counts streams by how they ended.
	StreamsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streams_finished_total",
			Help: "Total simulated response streams finished, by outcome",
		},
		[]string{"outcome"},
	)

	// StreamsActive tracks streams currently revealing text.
	StreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streams_active",
			Help: "Number of response streams currently in progress",
		},
	)

	// ForksTotal tracks branches created by forking.
	ForksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forks_total",
			Help: "Total conversation forks",
		},
	)

	// MessagesTotal tracks total messages appended.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages appended",
		},
		[]string{"role"},
	)

	// PersistenceErrors tracks swallowed storage failures.
	PersistenceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persistence_errors_total",
			Help: "Storage operations that failed and were degraded to memory-only",
		},
		[]string{"op"},
	)

	// ProviderRequests tracks response provider calls.
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Response provider calls by provider and status",
		},
		[]string{"provider", "status"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordStreamStarted marks a stream as started.
func RecordStreamStarted() {
	StreamsStarted.Inc()
	StreamsActive.Inc()
}

// RecordStreamFinished marks a stream as finished with the given outcome.
func RecordStreamFinished(outcome string) {
	StreamsFinished.WithLabelValues(outcome).Inc()
	StreamsActive.Dec()
}

// RecordPersistenceError counts a swallowed storage failure.
func RecordPersistenceError(op string) {
	PersistenceErrors.WithLabelValues(op).Inc()
}

// RecordProviderRequest counts a provider call.
func RecordProviderRequest(provider, status string) {
	ProviderRequests.WithLabelValues(provider, status).Inc()
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}

// RecordFork counts a branch fork.
func RecordFork() {
	ForksTotal.Inc()
}

// RecordMessage counts a created message by role.
func RecordMessage(role string) {
	MessagesTotal.WithLabelValues(role).Inc()
}
