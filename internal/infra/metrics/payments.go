package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		checkoutsTotal,
		confirmationsTotal,
		webhookEventsTotal,
		paymentsRevenueTotal,
	)
}

var (
	checkoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkouts_total",
			Help: "Checkout creations by resource kind and outcome (created/replayed/failed).",
		},
		[]string{"kind", "outcome"},
	)

	confirmationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confirmations_total",
			Help: "Confirmation outcomes by resource kind (active/already_active/pending/...).",
		},
		[]string{"kind", "outcome"},
	)

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Provider webhook deliveries by outcome.",
		},
		[]string{"outcome"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "Total monetary value of settled payments, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncCheckout(kind, outcome string) {
	checkoutsTotal.WithLabelValues(norm(kind), norm(outcome)).Inc()
}

func IncConfirmation(kind, outcome string) {
	confirmationsTotal.WithLabelValues(norm(kind), norm(outcome)).Inc()
}

func IncWebhookEvent(outcome string) {
	webhookEventsTotal.WithLabelValues(norm(outcome)).Inc()
}

func AddPaymentRevenue(currency string, amountCents int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amountCents))
}
