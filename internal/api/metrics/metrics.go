// Package metrics defines and registers all custom Prometheus metrics for the
// advisory API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// init via promauto and exposed on GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "advisory"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// RegistrationsTotal counts accounts created through /auth/register.
var RegistrationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of client accounts registered.",
	},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success" or "failure"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// AuthRejectionsTotal counts requests rejected by the access layer.
// Label:
//   - kind: "auth_error" (401) or "forbidden" (403)
var AuthRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_rejections_total",
		Help:      "Total number of requests rejected as unauthenticated or forbidden.",
	},
	[]string{"kind"},
)

// ── Request metrics ───────────────────────────────────────────────────────────

// RequestsCreatedTotal counts newly opened advisory requests.
// Label:
//   - risk_profile: "low", "medium" or "high"
var RequestsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_created_total",
		Help:      "Total number of advisory requests created, by risk profile.",
	},
	[]string{"risk_profile"},
)

// IdempotentReplaysTotal counts create calls answered from an earlier
// Idempotency-Key instead of creating a new request.
var IdempotentReplaysTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotent_replays_total",
		Help:      "Total number of request creations replayed from an Idempotency-Key.",
	},
)

// StatusTransitionsTotal counts applied status writes.
// Labels:
//   - from: the status that was replaced
//   - to: the status written
var StatusTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_transitions_total",
		Help:      "Total number of request status changes, by previous and new status.",
	},
	[]string{"from", "to"},
)
