package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(publishAttemptsTotal, publishBatchSize) }

var (
	publishAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contenthub_publish_attempts_total",
			Help: "Publish pool entry attempts by result.",
		},
		[]string{"result"}, // 'published', 'failed', 'rescheduled', 'skipped'
	)

	publishBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "contenthub_publish_batch_entries",
			Help:    "Number of entries selected per publish batch.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)
)

func IncPublishAttempt(result string) {
	publishAttemptsTotal.WithLabelValues(norm(result)).Inc()
}

func ObservePublishBatch(entries int) {
	publishBatchSize.Observe(float64(entries))
}
