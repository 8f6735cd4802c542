package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		taskSubmissionsTotal,
		taskResultsTotal,
		workerQueueDepth,
		pollerCyclesTotal,
		webhookEventsTotal,
	)
}

var (
	taskSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contenthub_task_submissions_total",
			Help: "Submissions of generation tasks to the external generator.",
		},
		[]string{"result"}, // 'submitted', 'failed', 'skipped'
	)

	taskResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contenthub_task_results_total",
			Help: "Reconciled task outcomes by status and source.",
		},
		[]string{"status", "source"}, // source: 'poller', 'webhook', 'worker', 'mq'
	)

	workerQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contenthub_worker_queue_depth",
			Help: "Current number of task ids waiting in a worker queue.",
		},
		[]string{"worker"},
	)

	pollerCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contenthub_poller_checks_total",
			Help: "Status checks made by the status poller.",
		},
		[]string{"outcome"},
	)

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contenthub_webhook_events_total",
			Help: "Webhook events received by event type and result.",
		},
		[]string{"event", "result"}, // result: 'processed', 'skipped', 'error', 'rejected'
	)
)

func IncTaskSubmission(result string) {
	taskSubmissionsTotal.WithLabelValues(norm(result)).Inc()
}

func IncTaskResult(status, source string) {
	taskResultsTotal.WithLabelValues(norm(status), norm(source)).Inc()
}

func SetWorkerQueueDepth(worker int, depth int) {
	workerQueueDepth.WithLabelValues(strconv.Itoa(worker)).Set(float64(depth))
}

func IncPollerCheck(outcome string) {
	pollerCyclesTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncWebhookEvent(event, result string) {
	webhookEventsTotal.WithLabelValues(norm(event), norm(result)).Inc()
}
