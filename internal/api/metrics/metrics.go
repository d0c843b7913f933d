// Package metrics defines all custom Prometheus metrics for the portal
// gateway. It is the single source of truth for metric names, labels, and
// help strings; promauto registers everything with the default registry at
// package init.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portal"

// GuardDecisionsTotal counts route-guard verdicts.
// Label:
//   - outcome: "allow", "deny_unauthenticated", "deny_invalid_token",
//     "deny_role_mismatch", "deny_backend_unavailable"
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of route-guard evaluations, by outcome.",
	},
	[]string{"outcome"},
)

// GatewayCallsTotal counts credential-backend exchanges.
// Labels:
//   - operation: "login", "register", "validate", "refresh"
//   - result: "ok", "invalid", "rejected", "network_error"
var GatewayCallsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_calls_total",
		Help:      "Total number of credential-backend calls, by operation and result.",
	},
	[]string{"operation", "result"},
)

// GatewayCallDuration measures credential-backend round-trip time.
var GatewayCallDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_call_duration_seconds",
		Help:      "Duration of credential-backend calls.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// SessionEventsTotal counts session-state transitions.
// Label:
//   - event: "set", "refresh", "clear"
var SessionEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_events_total",
		Help:      "Total number of session state changes, by event.",
	},
	[]string{"event"},
)

// RedirectsTotal counts redirect-controller outcomes.
// Label:
//   - result: "performed", "noop", "suppressed"
var RedirectsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "redirects_total",
		Help:      "Total number of role-dashboard redirect attempts, by result.",
	},
	[]string{"result"},
)

// ObserveGatewayCall records one backend exchange.
func ObserveGatewayCall(operation, result string, started time.Time) {
	GatewayCallsTotal.WithLabelValues(operation, result).Inc()
	GatewayCallDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
