package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsExpiredTotal,
		activationCodesIssuedTotal,
	)
}

var (
	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Premium subscriptions downgraded by the expiration batch job.",
		},
	)

	activationCodesIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "activation_codes_issued_total",
			Help: "Monthly activation codes generated.",
		},
	)
)

func AddSubscriptionsExpired(n int) {
	subscriptionsExpiredTotal.Add(float64(n))
}

func IncActivationCodeIssued() {
	activationCodesIssuedTotal.Inc()
}
