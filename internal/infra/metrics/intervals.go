package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(intervalWritesTotal) }

var intervalWritesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "subscription_interval_writes_total",
		Help: "Subscription intervals written, by subscription type and operation.",
	},
	[]string{"type", "op"}, // op: 'save', 'delete'
)

func IncIntervalWrite(subType, op string) {
	intervalWritesTotal.WithLabelValues(norm(subType), norm(op)).Inc()
}
