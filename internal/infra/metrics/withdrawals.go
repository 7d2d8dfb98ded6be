package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(withdrawalTransitionsTotal)
}

var withdrawalTransitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "withdrawal_transitions_total",
		Help: "Withdrawal request transitions by resulting status.",
	},
	[]string{"status"},
)

func IncWithdrawalTransition(status string) {
	withdrawalTransitionsTotal.WithLabelValues(norm(status)).Inc()
}
