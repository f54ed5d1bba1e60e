// Package metrics defines and registers all custom Prometheus metrics for the
// user service. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation, so importing the package is enough.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "usersvc"

// ── Command processor ─────────────────────────────────────────────────────────

// CommandsProcessedTotal counts commands executed by the processor.
// Labels:
//   - command: seed, login, create, read_all, read, update, delete, list_roles
//   - result: the reply type (e.g. "OK", "NOT_FOUND") or "error"
var CommandsProcessedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_processed_total",
		Help:      "Total number of commands executed by the command processor.",
	},
	[]string{"command", "result"},
)

// CommandDuration measures how long the processor spends inside one command.
var CommandDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "command_duration_seconds",
		Help:      "Duration of a single command from dequeue to reply.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"command"},
)

// CommandTimeoutsTotal counts asks that gave up waiting for a reply.
var CommandTimeoutsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "command_timeouts_total",
		Help:      "Total number of commands whose caller stopped waiting for the reply.",
	},
	[]string{"command"},
)

// MailboxDepth tracks the number of commands waiting in a mailbox.
// Label:
//   - mailbox: mailbox name (e.g. "users")
var MailboxDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mailbox_depth",
		Help:      "Current number of messages pending in a mailbox.",
	},
	[]string{"mailbox"},
)

// ── Auth gate ─────────────────────────────────────────────────────────────────

// AuthDecisionsTotal counts authentication and authorization outcomes.
// Labels:
//   - stage: "authenticate" or "authorize"
//   - decision: "anonymous", "authenticated", "rejected", "allowed", "denied"
var AuthDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_decisions_total",
		Help:      "Total number of auth gate decisions, by stage and outcome.",
	},
	[]string{"stage", "decision"},
)

// ── Cache ─────────────────────────────────────────────────────────────────────

// UserCacheTotal counts user cache lookups.
// Label:
//   - result: "hit", "miss" or "error"
var UserCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "user_cache_total",
		Help:      "Total number of user cache lookups, labelled by result.",
	},
	[]string{"result"},
)
