package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(ordersExpiredTotal, expiryRunsTotal) }

var (
	ordersExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_expired_total",
			Help: "Orders moved to EXPIRED because the buyer never sent an invoice.",
		},
	)

	expiryRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_expiry_runs_total",
			Help: "Order expiry worker runs, labeled by status.",
		},
		[]string{"status"}, // 'ok', 'error'
	)
)

func AddOrdersExpired(n int) {
	if n > 0 {
		ordersExpiredTotal.Add(float64(n))
	}
}

func IncExpiryRun(status string) {
	expiryRunsTotal.WithLabelValues(norm(status)).Inc()
}
