// Package metrics defines and registers all custom Prometheus metrics for the
// Family Circle API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation (promauto), so importing the package is enough.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric the service exports.
const Namespace = "familycircle"

// ── Session metrics ───────────────────────────────────────────────────────────

// RegistrationsTotal counts registration attempts.
// Labels:
//   - mode: "create" (new family), "join" (invite code) or "none"
//   - result: "ok" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by family mode and result.",
	},
	[]string{"mode", "result"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "ok", "invalid_credentials", "orphaned_identity" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// SessionTransitionsTotal counts session state machine moves.
var SessionTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "session_transitions_total",
		Help:      "Total number of session state transitions.",
	},
	[]string{"from", "to"},
)

// SagaCompensationsTotal counts undo steps run after a failed registration.
// Labels:
//   - step: e.g. "delete_identity", "delete_family", "delete_profile"
//   - result: "ok" or "error"
var SagaCompensationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "register_compensations_total",
		Help:      "Total number of registration compensation steps executed.",
	},
	[]string{"step", "result"},
)

// ── Family metrics ────────────────────────────────────────────────────────────

var FamiliesCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "families_created_total",
		Help:      "Total number of families created.",
	},
)

// InviteCodeCollisionsTotal counts generated invite codes rejected by the unique index.
var InviteCodeCollisionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "invite_code_collisions_total",
		Help:      "Total number of invite code collisions detected on insert.",
	},
)

// ── Media metrics ─────────────────────────────────────────────────────────────

// UploadsTotal counts upload attempts.
// Label:
//   - result: "ok", "too_large", "empty" or "error"
var UploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "uploads_total",
		Help:      "Total number of file uploads, by result.",
	},
	[]string{"result"},
)

var UploadSizeBytes = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "upload_size_bytes",
		Help:      "Size of accepted uploads.",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 8), // 1 KiB … 16 MiB
	},
)

// ── Auth state metrics ────────────────────────────────────────────────────────

// AuthStateNotificationsTotal counts auth-state notifications handled.
// Label:
//   - kind: "signed_in" or "signed_out"
var AuthStateNotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "auth_state_notifications_total",
		Help:      "Total number of auth-state notifications delivered to contexts.",
	},
	[]string{"kind"},
)

// AuthStateQueueDepth tracks pending notifications per dispatcher worker.
var AuthStateQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "auth_state_queue_depth",
		Help:      "Current number of auth-state notifications pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuthStateSubscribers tracks open auth-state subscriptions (SSE streams).
var AuthStateSubscribers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "auth_state_subscribers",
		Help:      "Current number of open auth-state subscriptions.",
	},
)

// ProfileResolveDuration measures profile resolution on sign-in notifications.
var ProfileResolveDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "profile_resolve_duration_seconds",
		Help:      "Duration of profile resolution for auth-state notifications.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)
