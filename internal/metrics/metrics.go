// Package metrics holds the prometheus collectors for session and request
// activity. Collectors are package-level and registered once per registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Refresh results.
const (
	RefreshSuccess   = "success"
	RefreshTransient = "transient"
	RefreshTerminal  = "terminal"
	RefreshNoToken   = "no_token"
	RefreshSkipped   = "skipped"
	RefreshDiscarded = "discarded"
)

// Request outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeHTTPError    = "http_error"
	OutcomeUnauthorized = "unauthorized"
	OutcomeNetworkError = "network_error"
)

var (
	RefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "setlist", Subsystem: "session", Name: "refresh_total", Help: "Token refresh attempts by result."},
		[]string{"result"},
	)
	RefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Namespace: "setlist", Subsystem: "session", Name: "refresh_duration_seconds", Help: "Latency of the refresh exchange.", Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20}},
	)
	TokenClearsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "setlist", Subsystem: "session", Name: "token_clears_total", Help: "Times the stored session was cleared, by reason."},
		[]string{"reason"},
	)
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "setlist", Subsystem: "gateway", Name: "requests_total", Help: "Gateway calls by method and outcome."},
		[]string{"method", "outcome"},
	)
	RetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "setlist", Subsystem: "gateway", Name: "retries_total", Help: "Attempts retried after a network failure."},
	)
)

// RegisterCollectors registers every collector with reg.
func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RefreshTotal)
	reg.MustRegister(RefreshDuration)
	reg.MustRegister(TokenClearsTotal)
	reg.MustRegister(RequestsTotal)
	reg.MustRegister(RetriesTotal)
}

// NewRegistry returns a registry with the setlist collectors plus the Go
// runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	RegisterCollectors(reg)
	return reg
}
