// Package metrics holds the Prometheus collectors of the bot. Collectors are
// registered with the default registry on import.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "budgetbot"

var (
	ConversationEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_events_total",
			Help:      "Conversation events handled, by event kind and outcome",
		},
		[]string{"event", "outcome"},
	)

	ExpensesCommittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_committed_total",
			Help:      "Expense rows written to the ledger",
		},
		[]string{"category"},
	)

	LedgerOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_operation_duration_seconds",
			Help:      "Ledger store call duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"backend", "op"},
	)

	LedgerOperationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operation_errors_total",
			Help:      "Failed ledger store calls",
		},
		[]string{"backend", "op"},
	)

	ReportDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_deliveries_total",
			Help:      "Daily report deliveries per recipient, by status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(ConversationEventsTotal)
	prometheus.MustRegister(ExpensesCommittedTotal)
	prometheus.MustRegister(LedgerOperationDuration)
	prometheus.MustRegister(LedgerOperationErrorsTotal)
	prometheus.MustRegister(ReportDeliveriesTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpRequestsTotal)
}
