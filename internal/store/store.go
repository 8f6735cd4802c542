// Package store описывает хранилище задач, контента, пула публикаций
// и расписаний.
//
// Хранилище — единственный общий изменяемый ресурс. Компоненты перечитывают
// запись непосредственно перед изменением и не держат блокировок.
//
// Реализации:
//   - repo.Store — PostgreSQL (pgx)
//   - memory.Store — в памяти, для тестов и локального запуска
package store

import (
	"context"
	"errors"
	"time"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
)

// Общие ошибки хранилища.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — запись уже существует (конфликт уникальности).
	ErrAlreadyExists = errors.New("already exists")

	// ErrConflict — условное обновление не применилось: статус уже изменён.
	ErrConflict = errors.New("status conflict")
)

// TaskStore — задачи генерации.
type TaskStore interface {
	CreateTask(ctx context.Context, task *domain.Task) error
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
	UpdateTask(ctx context.Context, task *domain.Task) error

	// ListPendingTasks возвращает до limit задач в pending,
	// по priority DESC, created_at ASC.
	ListPendingTasks(ctx context.Context, limit int) ([]*domain.Task, error)

	// ListInFlightTasks возвращает задачи в submitted и processing.
	ListInFlightTasks(ctx context.Context) ([]*domain.Task, error)
}

// ContentStore — сгенерированный контент.
type ContentStore interface {
	CreateContent(ctx context.Context, content *domain.Content) error
	GetContent(ctx context.Context, id int64) (*domain.Content, error)

	// GetContentByTask возвращает первый контент, созданный задачей.
	GetContentByTask(ctx context.Context, taskID string) (*domain.Content, error)
	UpdateContent(ctx context.Context, content *domain.Content) error
}

// PoolStore — пул публикаций.
type PoolStore interface {
	AddPoolEntry(ctx context.Context, entry *domain.PublishPoolEntry) error
	GetPoolEntry(ctx context.Context, id int64) (*domain.PublishPoolEntry, error)
	UpdatePoolEntry(ctx context.Context, entry *domain.PublishPoolEntry) error

	// ClaimPoolEntry атомарно переводит запись из pending в publishing.
	// Возвращает ErrConflict, если запись уже не pending.
	ClaimPoolEntry(ctx context.Context, id int64, now time.Time) (*domain.PublishPoolEntry, error)

	// ListEligibleEntries возвращает pending-записи с scheduled_at <= now (или NULL),
	// по priority DESC, scheduled_at ASC (NULL первыми), added_at ASC.
	ListEligibleEntries(ctx context.Context, now time.Time, limit int) ([]*domain.PublishPoolEntry, error)

	// FindActiveEntry возвращает pending/publishing запись для контента.
	FindActiveEntry(ctx context.Context, contentID int64) (*domain.PublishPoolEntry, error)

	PoolStats(ctx context.Context) (domain.PoolStats, error)
}

// ScheduledTaskStore — определения периодических задач.
type ScheduledTaskStore interface {
	CreateScheduledTask(ctx context.Context, st *domain.ScheduledTask) error
	GetScheduledTask(ctx context.Context, id int64) (*domain.ScheduledTask, error)

	// ListActiveScheduledTasks возвращает is_active задачи с триггером.
	ListActiveScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error)

	// UpdateScheduleState сохраняет только next_run_at и last_run_at.
	UpdateScheduleState(ctx context.Context, st *domain.ScheduledTask) error
}

// ExecutionStore — история запусков. Только добавление.
type ExecutionStore interface {
	CreateExecution(ctx context.Context, exec *domain.TaskExecution) error
	ListExecutions(ctx context.Context, scheduledTaskID int64, limit int) ([]*domain.TaskExecution, error)
}

// Store объединяет все хранилища.
type Store interface {
	TaskStore
	ContentStore
	PoolStore
	ScheduledTaskStore
	ExecutionStore
}
