package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oychao1988/content-hub-sub001/internal/generator"
	"github.com/oychao1988/content-hub-sub001/internal/store"
)

// Default configuration values.
const (
	defaultWorkers       = 3
	defaultQueueSize     = 100
	defaultPollInterval  = 5 * time.Second
	defaultPollBatch     = 10
	defaultSubmitTimeout = 30 * time.Second
	defaultStopTimeout   = 10 * time.Second
)

// Config — конфигурация пула.
type Config struct {
	// Workers — количество воркеров (default: 3).
	Workers int

	// QueueSize — ёмкость очереди каждого воркера (default: 100).
	QueueSize int

	// PollInterval — пауза, если очередь и хранилище пусты (default: 5s).
	PollInterval time.Duration

	// PollBatch — сколько pending задач выбирать за раз (default: 10).
	PollBatch int

	// SubmitTimeout — таймаут вызова генератора (default: 30s).
	SubmitTimeout time.Duration

	// StopTimeout — сколько ждать выхода воркера при Stop (default: 10s).
	StopTimeout time.Duration

	// Dependencies
	Tasks     store.TaskStore
	Generator generator.Client
	Results   Results

	// Logger
	Logger *slog.Logger
}

// Pool — пул воркеров.
type Pool struct {
	workers     []*Worker
	next        atomic.Uint32
	stopTimeout time.Duration
	logger      *slog.Logger

	// claimed — ID в очередях или в обработке (дедупликация внутри процесса)
	claimed sync.Map

	// Lifecycle
	mu      sync.Mutex
	started bool
	stopped bool
}

// NewPool создаёт пул. Воркеры стартуют в Start.
func NewPool(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.PollBatch <= 0 {
		cfg.PollBatch = defaultPollBatch
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = defaultSubmitTimeout
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	p := &Pool{
		stopTimeout: cfg.StopTimeout,
		logger:      cfg.Logger,
	}
	p.workers = make([]*Worker, cfg.Workers)
	for i := range p.workers {
		p.workers[i] = newWorker(i+1, p, cfg)
	}
	return p
}

// Start запускает все воркеры.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}
	p.started = true

	for _, w := range p.workers {
		w.start(ctx)
	}

	p.logger.Info("worker pool started",
		"workers", len(p.workers),
		"queue_size", cap(p.workers[0].queue),
	)
}

// Stop останавливает воркеры, ожидая каждого не дольше StopTimeout.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.logger.Info("stopping worker pool...")

	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			if !w.stop(p.stopTimeout) {
				p.logger.Warn("worker did not stop in time, abandoning",
					"worker_id", w.id,
					"timeout", p.stopTimeout,
				)
			}
		}(w)
	}
	wg.Wait()

	p.logger.Info("worker pool stopped")
}

// Submit ставит задачу в очередь одного из воркеров.
//
// Перебирает воркеров по кругу; если все очереди заполнены,
// возвращает ErrQueueFull. Никогда не блокируется.
func (p *Pool) Submit(taskID string) error {
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return ErrPoolStopped
	}

	if !p.claim(taskID) {
		return fmt.Errorf("%w: %s", ErrAlreadyQueued, taskID)
	}

	n := len(p.workers)
	start := int(p.next.Add(1)-1) % n
	for i := 0; i < n; i++ {
		w := p.workers[(start+i)%n]
		if w.enqueue(taskID) {
			p.logger.Debug("task queued", "task_id", taskID, "worker_id", w.id)
			return nil
		}
	}

	p.release(taskID)
	return fmt.Errorf("%w: %d workers, capacity %d each", ErrQueueFull, n, cap(p.workers[0].queue))
}

// Stats возвращает состояние всех воркеров.
func (p *Pool) Stats() []Stats {
	out := make([]Stats, len(p.workers))
	for i, w := range p.workers {
		out[i] = w.stats()
	}
	return out
}

// Capacity возвращает суммарную ёмкость очередей.
func (p *Pool) Capacity() int {
	return len(p.workers) * cap(p.workers[0].queue)
}

func (p *Pool) claim(taskID string) bool {
	_, loaded := p.claimed.LoadOrStore(taskID, struct{}{})
	return !loaded
}

func (p *Pool) release(taskID string) {
	p.claimed.Delete(taskID)
}
