package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(postsExpiredTotal, sweepRunsTotal, sweepDuration, tasksProcessedTotal)
}

var (
	postsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "posts_expired_total",
			Help: "Posts demoted back to draft by the expiry sweep.",
		},
	)

	sweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expiry_sweep_runs_total",
			Help: "Expiry sweep passes by outcome.",
		},
		[]string{"status"}, // ok | error | panic
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "expiry_sweep_duration_seconds",
			Help:    "Duration of expiry sweep passes.",
			Buckets: prometheus.DefBuckets,
		},
	)

	tasksProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasks_processed_total",
			Help: "Queued tasks consumed, by type and status.",
		},
		[]string{"type", "status"},
	)
)

func AddPostsExpired(n int) {
	postsExpiredTotal.Add(float64(n))
}

func ObserveSweep(status string, seconds float64) {
	sweepRunsTotal.WithLabelValues(norm(status)).Inc()
	sweepDuration.Observe(seconds)
}

func IncTaskProcessed(taskType, status string) {
	tasksProcessedTotal.WithLabelValues(norm(taskType), norm(status)).Inc()
}
