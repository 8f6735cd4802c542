// Package poller периодически сверяет задачи в работе с внешним генератором.
//
// Для каждой задачи в submitted/processing poller запрашивает статус
// и передаёт итог в обработчик результатов:
//   - completed — забирает полный результат и вызывает Completed
//   - failed — вызывает Failed (с повтором, пока есть попытки)
//   - в работе — Timeout после дедлайна, иначе Progress (started_at)
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/generator"
	"github.com/oychao1988/content-hub-sub001/internal/metrics"
	"github.com/oychao1988/content-hub-sub001/internal/result"
	"github.com/oychao1988/content-hub-sub001/internal/store"
)

const (
	defaultInterval    = 30 * time.Second
	defaultConcurrency = 4
)

// Итоги проверки одной задачи.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeTimeout   = "timeout"
	OutcomeRunning   = "running"
	OutcomeError     = "error"
)

// Results — обработчик результатов.
type Results interface {
	Completed(ctx context.Context, taskID string, payload map[string]any, source string) (*result.Outcome, error)
	Failed(ctx context.Context, taskID, errMsg, source string) (*result.Outcome, error)
	Progress(ctx context.Context, taskID string, progress map[string]any, source string) (*result.Outcome, error)
	Started(ctx context.Context, taskID string) (*result.Outcome, error)
	Timeout(ctx context.Context, taskID, source string) (*result.Outcome, error)
}

// Config — конфигурация Poller.
type Config struct {
	Tasks     store.TaskStore
	Generator generator.Client
	Results   Results

	// Interval — период опроса (default: 30s).
	Interval time.Duration

	// Concurrency — сколько задач проверять одновременно (default: 4).
	Concurrency int

	Logger *slog.Logger
}

// Poller — опрос статусов задач.
type Poller struct {
	tasks       store.TaskStore
	generator   generator.Client
	results     Results
	interval    time.Duration
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// New создаёт Poller.
func New(cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Poller{
		tasks:       cfg.Tasks,
		generator:   cfg.Generator,
		results:     cfg.Results,
		interval:    cfg.Interval,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
		now:         time.Now,
	}
}

// Run опрашивает задачи до отмены ctx.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("status poller started", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.PollOnce(ctx); err != nil {
			p.logger.Error("status poll failed", "error", err)
		}

		select {
		case <-ctx.Done():
			p.logger.Info("status poller stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Stats — итог одного опроса.
type Stats struct {
	Checked   int `json:"checked"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Timeout   int `json:"timeout"`
	Running   int `json:"running"`
	Errors    int `json:"errors"`
}

// PollOnce проверяет все задачи в submitted/processing.
// Ошибка одной задачи не прерывает проверку остальных.
func (p *Poller) PollOnce(ctx context.Context) (*Stats, error) {
	list, err := p.tasks.ListInFlightTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list in-flight tasks: %w", err)
	}

	var counts [5]atomic.Int32
	index := map[string]int{
		OutcomeCompleted: 0,
		OutcomeFailed:    1,
		OutcomeTimeout:   2,
		OutcomeRunning:   3,
		OutcomeError:     4,
	}

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for _, task := range list {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcome := p.checkTask(ctx, task)
			metrics.IncPollerCheck(outcome)
			counts[index[outcome]].Add(1)
			return nil
		})
	}
	_ = g.Wait()

	stats := &Stats{
		Checked:   len(list),
		Completed: int(counts[0].Load()),
		Failed:    int(counts[1].Load()),
		Timeout:   int(counts[2].Load()),
		Running:   int(counts[3].Load()),
		Errors:    int(counts[4].Load()),
	}
	if stats.Checked > 0 {
		p.logger.Info("status poll completed",
			"checked", stats.Checked,
			"completed", stats.Completed,
			"failed", stats.Failed,
			"timeout", stats.Timeout,
			"errors", stats.Errors,
		)
	}
	return stats, nil
}

// checkTask сверяет одну задачу. Никогда не паникует.
func (p *Poller) checkTask(ctx context.Context, task *domain.Task) (outcome string) {
	logger := p.logger.With("task_id", task.TaskID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while polling task", "panic", r, "stack", string(debug.Stack()))
			outcome = OutcomeError
		}
	}()

	status, err := p.generator.Status(ctx, task.TaskID)
	if err != nil {
		if task.IsTimedOut(p.now()) {
			return p.timeout(ctx, task.TaskID, logger)
		}
		logger.Warn("generator status query failed", "error", err)
		return OutcomeError
	}

	switch generator.NormalizeStatus(status.Status) {
	case generator.StatusCompleted:
		payload, err := p.generator.Result(ctx, task.TaskID)
		if err != nil {
			logger.Warn("generator result query failed", "error", err)
			return OutcomeError
		}
		if _, err := p.results.Completed(ctx, task.TaskID, payload, result.SourcePoller); err != nil {
			logger.Error("failed to apply completed result", "error", err)
			return OutcomeError
		}
		return OutcomeCompleted

	case generator.StatusFailed:
		if _, err := p.results.Failed(ctx, task.TaskID, status.Error, result.SourcePoller); err != nil {
			logger.Error("failed to apply failed result", "error", err)
			return OutcomeError
		}
		return OutcomeFailed

	default:
		if task.IsTimedOut(p.now()) {
			return p.timeout(ctx, task.TaskID, logger)
		}
		progress := status.ProgressMap()
		if len(progress) == 0 {
			if _, err := p.results.Started(ctx, task.TaskID); err != nil {
				logger.Error("failed to mark task started", "error", err)
				return OutcomeError
			}
			return OutcomeRunning
		}
		if _, err := p.results.Progress(ctx, task.TaskID, progress, result.SourcePoller); err != nil {
			logger.Error("failed to apply progress", "error", err)
			return OutcomeError
		}
		return OutcomeRunning
	}
}

func (p *Poller) timeout(ctx context.Context, taskID string, logger *slog.Logger) string {
	if _, err := p.results.Timeout(ctx, taskID, result.SourcePoller); err != nil {
		logger.Error("failed to apply timeout", "error", err)
		return OutcomeError
	}
	return OutcomeTimeout
}
