package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/oychao1988/content-hub-sub001/internal/generator"
	"github.com/oychao1988/content-hub-sub001/internal/metrics"
	"github.com/oychao1988/content-hub-sub001/internal/result"
	"github.com/oychao1988/content-hub-sub001/internal/store"
)

// Results — фиксация итогов отправки.
type Results interface {
	Submitted(ctx context.Context, taskID string) (*result.Outcome, error)
	Failed(ctx context.Context, taskID, errMsg, source string) (*result.Outcome, error)
}

// Worker — один воркер со своей очередью.
type Worker struct {
	id    int
	queue chan string
	wake  chan struct{}
	pool  *Pool

	// Dependencies
	tasks     store.TaskStore
	generator generator.Client
	results   Results

	// Configuration
	pollInterval  time.Duration
	pollBatch     int
	submitTimeout time.Duration

	// Counters
	processed atomic.Int64
	failed    atomic.Int64

	// Lifecycle
	logger  *slog.Logger
	running atomic.Bool
	stopCh  chan struct{}
	done    chan struct{}
}

func newWorker(id int, p *Pool, cfg Config) *Worker {
	return &Worker{
		id:            id,
		queue:         make(chan string, cfg.QueueSize),
		wake:          make(chan struct{}, 1),
		pool:          p,
		tasks:         cfg.Tasks,
		generator:     cfg.Generator,
		results:       cfg.Results,
		pollInterval:  cfg.PollInterval,
		pollBatch:     cfg.PollBatch,
		submitTimeout: cfg.SubmitTimeout,
		logger:        cfg.Logger.With("worker_id", id),
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// enqueue кладёт ID в очередь без блокировки.
func (w *Worker) enqueue(taskID string) bool {
	select {
	case w.queue <- taskID:
		metrics.SetWorkerQueueDepth(w.id, len(w.queue))
		select {
		case w.wake <- struct{}{}:
		default:
		}
		return true
	default:
		return false
	}
}

// start запускает цикл воркера.
func (w *Worker) start(ctx context.Context) {
	w.running.Store(true)
	go w.loop(ctx)
}

// loop — основной цикл воркера.
func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)

	w.logger.Debug("worker loop started")

	for w.running.Load() && ctx.Err() == nil {
		select {
		case taskID := <-w.queue:
			metrics.SetWorkerQueueDepth(w.id, len(w.queue))
			if !w.processTask(ctx, taskID) {
				// Итог не записан: пауза перед повторным опросом
				w.sleep(ctx)
			}
			continue
		default:
		}

		if w.poll(ctx) > 0 {
			continue
		}

		timer := time.NewTimer(w.pollInterval)
		select {
		case <-ctx.Done():
		case <-w.stopCh:
		case <-w.wake:
		case <-timer.C:
		}
		timer.Stop()
	}

	w.logger.Debug("worker loop exited")
}

// sleep ждёт один интервал опроса, не просыпаясь от новых задач.
func (w *Worker) sleep(ctx context.Context) {
	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-w.stopCh:
	case <-timer.C:
	}
}

// stop сбрасывает running и ждёт выхода цикла не дольше timeout.
// Возвращает false, если цикл не успел завершиться.
func (w *Worker) stop(timeout time.Duration) bool {
	if w.running.CompareAndSwap(true, false) {
		close(w.stopCh)
	}

	select {
	case <-w.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Stats — состояние воркера.
type Stats struct {
	ID        int   `json:"id"`
	Running   bool  `json:"running"`
	QueueLen  int   `json:"queue_len"`
	QueueCap  int   `json:"queue_cap"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

func (w *Worker) stats() Stats {
	return Stats{
		ID:        w.id,
		Running:   w.running.Load(),
		QueueLen:  len(w.queue),
		QueueCap:  cap(w.queue),
		Processed: w.processed.Load(),
		Failed:    w.failed.Load(),
	}
}
