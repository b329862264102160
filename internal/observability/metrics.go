package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain-level counters. HTTP-level instrumentation lives in the middleware
// package; these track the conversation funnel itself.
var (
	ConversationTurns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_turns_total",
			Help: "Total processed conversation turns, by routed intent.",
		},
		[]string{"intent"},
	)

	ConversationEscalations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "conversation_escalations_total",
			Help: "Total turns that ended in a human hand-off.",
		},
	)

	OrderSubmissions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_submitted_total",
			Help: "Total order drafts committed to durable orders.",
		},
	)
)

func init() {
	prometheus.MustRegister(ConversationTurns, ConversationEscalations, OrderSubmissions)
}

// RecordTurn counts one processed turn and, when the turn escalated to a
// human, the escalation alongside it.
func RecordTurn(intent string, escalated bool) {
	ConversationTurns.WithLabelValues(intent).Inc()
	if escalated {
		ConversationEscalations.Inc()
	}
}
