// Package metrics provides Prometheus metrics for the voicecall client.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveCalls tracks the number of voice sessions that have not been torn down.
	ActiveCalls = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "voicecall_active_calls",
			Help: "Number of voice sessions currently open",
		},
	)

	// CallsStarted tracks the total number of voice sessions started.
	CallsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voicecall_calls_started_total",
			Help: "Total number of voice sessions started",
		},
	)

	// JoinAttempts tracks join clicks by outcome.
	JoinAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicecall_join_attempts_total",
			Help: "Total number of join attempts by outcome",
		},
		[]string{"outcome"},
	)

	// CallStateTransitions tracks voice session state changes.
	CallStateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicecall_state_transitions_total",
			Help: "Total number of voice session state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	// RemoteTracksAttached tracks agent audio tracks attached to playback.
	RemoteTracksAttached = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voicecall_remote_tracks_attached_total",
			Help: "Total number of remote audio tracks attached to playback",
		},
	)

	// TokenFetchDuration tracks token endpoint latency.
	TokenFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voicecall_token_fetch_duration_seconds",
			Help:    "Duration of access token requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"outcome"},
	)

	// HTTPRequests tracks requests served by the local UI and API.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicecall_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voicecall_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordTokenFetch records a token request and its outcome ("ok" or a failure reason).
func RecordTokenFetch(outcome string, elapsed time.Duration) {
	TokenFetchDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// RecordJoin records a join attempt outcome.
func RecordJoin(outcome string) {
	JoinAttempts.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records a served request.
func RecordHTTPRequest(method, route, status string, elapsed time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// CallRecorder reports call lifecycle events to the package metrics.
type CallRecorder struct{}

// CallStarted increments call start metrics.
func (CallRecorder) CallStarted() {
	CallsStarted.Inc()
	ActiveCalls.Inc()
}

// CallEnded decrements the active call gauge.
func (CallRecorder) CallEnded() {
	ActiveCalls.Dec()
}

// StateChanged records a voice session state change.
func (CallRecorder) StateChanged(from, to string) {
	CallStateTransitions.WithLabelValues(from, to).Inc()
}

// RemoteTrackAttached counts an attached agent track.
func (CallRecorder) RemoteTrackAttached() {
	RemoteTracksAttached.Inc()
}

// JoinFinished records the outcome of a join attempt.
func (CallRecorder) JoinFinished(outcome string) {
	RecordJoin(outcome)
}
