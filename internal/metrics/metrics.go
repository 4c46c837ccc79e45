// Package metrics exposes Prometheus counters for the assistant pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cv_assistant"

// Registry holds every collector of this package. It is separate from the
// default registry so tests and embedders get a clean set.
var Registry = prometheus.NewRegistry()

var (
	// GatewayRequests counts calls to the generative backend by mode
	// (chat, document, advice) and outcome (ok, error, retry).
	GatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Generative backend calls by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	// ChatFallbacks counts chat turns answered with the fixed fallback text.
	ChatFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "fallbacks_total",
			Help:      "Chat turns that degraded to the connection error message.",
		},
	)

	// ChatReplies counts parsed chat replies by kind (action, advisory).
	ChatReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "replies_total",
			Help:      "Parsed chat replies by kind.",
		},
		[]string{"kind"},
	)

	// ActionsApplied counts reconciler outcomes by action type, section and
	// result (applied, ignored).
	ActionsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "actions_total",
			Help:      "Reconciled actions by type, section and result.",
		},
		[]string{"type", "section", "result"},
	)

	// Imports counts document imports by result (ok, failed).
	Imports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "importer",
			Name:      "documents_total",
			Help:      "Document imports by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(GatewayRequests, ChatFallbacks, ChatReplies, ActionsApplied, Imports)
}
