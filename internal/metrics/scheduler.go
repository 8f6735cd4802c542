package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(schedulerRunsTotal, schedulerRunDuration) }

var (
	schedulerRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contenthub_scheduler_runs_total",
			Help: "Scheduled task runs by executor type, status and trigger.",
		},
		[]string{"task_type", "status", "trigger"},
	)

	schedulerRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contenthub_scheduler_run_duration_seconds",
			Help:    "Duration of scheduled task runs.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
		[]string{"task_type"},
	)
)

func ObserveSchedulerRun(taskType, status, trigger string, d time.Duration) {
	schedulerRunsTotal.WithLabelValues(norm(taskType), norm(status), norm(trigger)).Inc()
	schedulerRunDuration.WithLabelValues(norm(taskType)).Observe(d.Seconds())
}
