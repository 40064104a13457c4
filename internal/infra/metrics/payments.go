package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentEndsTotal,
		gatewayNotificationsTotal,
		notificationDuration,
		balanceMovementsTotal,
	)
}

var (
	// result: validated|form|redirect|rejected|error
	paymentEndsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_ends_total",
			Help: "Calls to end a payment, by outcome.",
		},
		[]string{"result"},
	)

	// outcome: validated|duplicate|rejected|malformed|unauthorized|foreign|unknown_invoice|error|rate_limited
	gatewayNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_notifications_total",
			Help: "Gateway notifications by handling outcome.",
		},
		[]string{"outcome"},
	)

	notificationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_notification_duration_seconds",
			Help:    "Duration of the gateway notification handler in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"outcome"},
	)

	// direction: debit|credit
	balanceMovementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "balance_movements_total",
			Help: "Sum of balance movements in currency units.",
		},
		[]string{"direction"},
	)
)

func IncPaymentEnd(result string) {
	paymentEndsTotal.WithLabelValues(norm(result)).Inc()
}

func ObserveNotification(outcome string, seconds float64) {
	gatewayNotificationsTotal.WithLabelValues(norm(outcome)).Inc()
	notificationDuration.WithLabelValues(norm(outcome)).Observe(seconds)
}

func AddBalanceMovement(direction string, amount float64) {
	if amount < 0 {
		amount = -amount
	}
	balanceMovementsTotal.WithLabelValues(norm(direction)).Add(amount)
}
