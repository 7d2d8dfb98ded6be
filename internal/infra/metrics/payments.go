package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentLinksTotal,
		activationsTotal,
	)
}

var (
	paymentLinksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_links_total",
			Help: "Payment link lifecycle events by status (pending/completed/expired/cancelled).",
		},
		[]string{"status"},
	)

	activationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_activations_total",
			Help: "Subscription activations by source (webhook/manual/code).",
		},
		[]string{"source"},
	)
)

func IncPaymentLink(status string) {
	paymentLinksTotal.WithLabelValues(norm(status)).Inc()
}

func IncActivation(source string) {
	activationsTotal.WithLabelValues(norm(source)).Inc()
}
