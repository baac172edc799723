// Package metrics holds the Prometheus collectors shared by the client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GuardDecisions counts route guard outcomes by route and result.
	GuardDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ezcoins",
		Name:      "guard_decisions_total",
		Help:      "Route authorization decisions.",
	}, []string{"route", "outcome"})

	// CacheReads counts cache-only reads by hit or miss.
	CacheReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ezcoins",
		Name:      "session_cache_reads_total",
		Help:      "Cache-only session snapshot reads.",
	}, []string{"result"})

	// Hydrations counts session hydrations by result.
	Hydrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ezcoins",
		Name:      "session_hydrations_total",
		Help:      "Session snapshot hydrations from the remote service.",
	}, []string{"result"})

	// SessionTransitions counts logins, logouts and expiries.
	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ezcoins",
		Name:      "session_transitions_total",
		Help:      "Session state transitions.",
	}, []string{"kind"})

	// HTTPRequests counts requests served by the local surface.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ezcoins",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes request latency.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ezcoins",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)
