// Package metrics defines and registers the custom Prometheus metrics of the
// recruiting session core. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics register with the default registry on import through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "recruiting"

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionPublishedTotal counts published session snapshots.
// Label:
//   - status: pending, authenticated, unauthenticated or error
var SessionPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_published_total",
		Help:      "Total number of session snapshots published, by status.",
	},
	[]string{"status"},
)

// SessionNotificationsDroppedTotal counts snapshots skipped because
// OnSessionChange callbacks fell behind.
var SessionNotificationsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_notifications_dropped_total",
		Help:      "Total number of session snapshots not delivered to lagging callbacks.",
	},
)

// ReconciliationsTotal counts completed reconciliations.
// Label:
//   - outcome: "existing", "created", "fallback" or "stale" (discarded)
var ReconciliationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconciliations_total",
		Help:      "Total number of principal reconciliations, by outcome.",
	},
	[]string{"outcome"},
)

// ReconciliationDuration measures principal-to-result latency.
var ReconciliationDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reconciliation_duration_seconds",
		Help:      "Duration of a reconciliation from principal event to result.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ProfileStoreErrorsTotal counts failed profile store calls.
// Labels:
//   - op: "get" or "upsert"
//   - reason: "unavailable", "conflict", "not_found" or "unknown"
var ProfileStoreErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_store_errors_total",
		Help:      "Total number of failed profile store operations.",
	},
	[]string{"op", "reason"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// SignInsTotal counts sign-in attempts.
// Labels:
//   - channel: "direct" or "federated"
//   - result: "ok", "invalid_credentials", "invalid_assertion", "exists",
//     "disabled", "rate_limited" or "error"
var SignInsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sign_ins_total",
		Help:      "Total number of sign-in attempts, by channel and result.",
	},
	[]string{"channel", "result"},
)

// GuardDecisionsTotal counts route guard verdicts.
// Labels:
//   - guard: "session" or "role"
//   - verdict: "allow", "wait" or "redirect"
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of access guard decisions.",
	},
	[]string{"guard", "verdict"},
)
