package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(webhookDecisionsTotal)
}

var webhookDecisionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webhook_decisions_total",
		Help: "Webhook deliveries by idempotency guard decision (process/duplicate/ignore).",
	},
	[]string{"decision"},
)

func IncWebhookDecision(decision string) {
	webhookDecisionsTotal.WithLabelValues(norm(decision)).Inc()
}
