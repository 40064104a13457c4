package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(workerTasksTotal, rateLimitedTotal) }

var (
	// status: 'done', 'failed', 'dropped'
	workerTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_tasks_total",
			Help: "Background side-effect tasks by final status.",
		},
		[]string{"status"},
	)

	rateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Requests refused by the rate limiter, by scope.",
		},
		[]string{"scope"},
	)
)

func IncWorkerTask(status string) {
	workerTasksTotal.WithLabelValues(norm(status)).Inc()
}

func IncRateLimited(scope string) {
	rateLimitedTotal.WithLabelValues(norm(scope)).Inc()
}
