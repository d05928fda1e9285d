package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		sessionsTotal,
		sessionsResolvedTotal,
		materializationFailures,
		walletCreditsTotal,
	)
}

var (
	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_sessions_total",
			Help: "Payment sessions initiated, by purpose.",
		},
		[]string{"purpose"},
	)

	sessionsResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_sessions_resolved_total",
			Help: "Sessions moved to a terminal status, by status and resolution path (callback/poll/reconciler).",
		},
		[]string{"status", "path"},
	)

	materializationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_materialization_failures_total",
			Help: "Sessions marked successful whose order/subscription/wallet writes failed. Requires manual reconciliation.",
		},
	)

	walletCreditsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_credits_total",
			Help: "Monetary value credited to vendor wallets.",
		},
		[]string{"currency"},
	)
)

func IncSession(purpose string) {
	sessionsTotal.WithLabelValues(norm(purpose)).Inc()
}

func IncResolved(status, path string) {
	sessionsResolvedTotal.WithLabelValues(norm(status), norm(path)).Inc()
}

func IncMaterializationFailure() {
	materializationFailures.Inc()
}

func AddWalletCredit(currency string, amount int64) {
	walletCreditsTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}
