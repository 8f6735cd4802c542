// Package result — единая точка изменения состояния задач генерации.
//
// Handler применяет результаты генератора (completed, failed, progress,
// timeout), пришедшие от поллера, webhook'а или очереди сообщений.
// Перед каждым изменением задача перечитывается из хранилища; события
// для задач в финальном статусе пропускаются (skipped).
package result

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/metrics"
	"github.com/oychao1988/content-hub-sub001/internal/publishpool"
	"github.com/oychao1988/content-hub-sub001/internal/store"
)

const (
	defaultTaskTimeout = 30 * time.Minute

	titleMaxLen   = 200
	summaryMaxLen = 200
)

// Источники событий.
const (
	SourcePoller  = "poller"
	SourceWebhook = "webhook"
	SourceWorker  = "worker"
	SourceMQ      = "mq"
	SourceAPI     = "api"
)

// События задач для Notifier.
const (
	EventCompleted = "task.completed"
	EventFailed    = "task.failed"
	EventRetried   = "task.retried"
	EventTimeout   = "task.timeout"
	EventCancelled = "task.cancelled"
)

// ErrTaskNotFound — задача не найдена.
var ErrTaskNotFound = errors.New("task not found")

// ErrMissingContent — результат генератора не содержит текста.
var ErrMissingContent = errors.New("result missing required content")

// PoolAdder добавляет контент в пул публикаций.
type PoolAdder interface {
	Add(ctx context.Context, req publishpool.AddRequest) (*domain.PublishPoolEntry, error)
}

// Notifier получает события изменения задач.
type Notifier interface {
	NotifyTask(ctx context.Context, event string, task *domain.Task)
}

// Store — хранилища, нужные обработчику.
type Store interface {
	store.TaskStore
	store.ContentStore
}

// Config — конфигурация Handler.
type Config struct {
	Store Store
	Pool  PoolAdder

	// Notifier — опционально.
	Notifier Notifier

	// TaskTimeout — дедлайн задачи после отправки и после сброса на повтор.
	TaskTimeout time.Duration

	Logger *slog.Logger
}

// Handler — обработчик результатов генерации.
type Handler struct {
	store       Store
	pool        PoolAdder
	notifier    Notifier
	taskTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// New создаёт Handler.
func New(cfg Config) *Handler {
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = defaultTaskTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Handler{
		store:       cfg.Store,
		pool:        cfg.Pool,
		notifier:    cfg.Notifier,
		taskTimeout: cfg.TaskTimeout,
		logger:      cfg.Logger,
		now:         time.Now,
	}
}

// TaskTimeout возвращает дедлайн выполнения задачи.
func (h *Handler) TaskTimeout() time.Duration {
	return h.taskTimeout
}

// Outcome — итог применения события.
type Outcome struct {
	TaskID      string            `json:"task_id"`
	Status      domain.TaskStatus `json:"status"`
	Skipped     bool              `json:"skipped"`
	Retried     bool              `json:"retried,omitempty"`
	ContentID   *int64            `json:"content_id,omitempty"`
	PoolEntryID *int64            `json:"pool_entry_id,omitempty"`
	Message     string            `json:"message,omitempty"`
}

func skipped(task *domain.Task, msg string) *Outcome {
	return &Outcome{TaskID: task.TaskID, Status: task.Status, Skipped: true, Message: msg}
}

// load перечитывает задачу.
func (h *Handler) load(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := h.store.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (h *Handler) save(ctx context.Context, task *domain.Task) error {
	task.UpdatedAt = h.now()
	if err := h.store.UpdateTask(ctx, task); err != nil {
		return fmt.Errorf("update task %s: %w", task.TaskID, err)
	}
	return nil
}

func (h *Handler) notify(ctx context.Context, event string, task *domain.Task) {
	if h.notifier != nil {
		h.notifier.NotifyTask(ctx, event, task)
	}
}

// Submitted фиксирует успешную отправку задачи генератору.
// Задача должна быть в pending, иначе событие пропускается.
func (h *Handler) Submitted(ctx context.Context, taskID string) (*Outcome, error) {
	task, err := h.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != domain.TaskStatusPending {
		return skipped(task, "task is not pending"), nil
	}

	task.MarkSubmitted(h.now(), h.taskTimeout)
	if err := h.save(ctx, task); err != nil {
		return nil, err
	}

	metrics.IncTaskSubmission("submitted")
	h.logger.Info("task submitted", "task_id", task.TaskID, "retry_count", task.RetryCount)
	return &Outcome{TaskID: task.TaskID, Status: task.Status}, nil
}
