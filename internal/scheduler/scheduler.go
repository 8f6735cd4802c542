package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/executor"
	"github.com/oychao1988/content-hub-sub001/internal/lock"
	"github.com/oychao1988/content-hub-sub001/internal/metrics"
	"github.com/oychao1988/content-hub-sub001/internal/store"
)

// Политики перекрытия запусков одной задачи.
const (
	OverlapAllow = "allow"
	OverlapSkip  = "skip"
)

const (
	defaultTickInterval = 10 * time.Second
	defaultLockTTL      = 30 * time.Minute
)

// ErrNotFound — ScheduledTask не найдена.
var ErrNotFound = errors.New("scheduled task not found")

// Store — хранилища, нужные планировщику.
type Store interface {
	store.ScheduledTaskStore
	store.ExecutionStore
}

// Config — конфигурация Scheduler.
type Config struct {
	Store    Store
	Registry *executor.Registry

	// Overlap — OverlapAllow (default) или OverlapSkip.
	Overlap string

	// Locker — обязателен для OverlapSkip.
	Locker lock.Locker

	// LockTTL — время жизни блокировки запуска (default: 30m).
	LockTTL time.Duration

	// TickInterval — период проверки расписания (default: 10s).
	TickInterval time.Duration

	Logger *slog.Logger
}

// Scheduler — планировщик ScheduledTask.
type Scheduler struct {
	store        Store
	registry     *executor.Registry
	overlap      string
	locker       lock.Locker
	lockTTL      time.Duration
	tickInterval time.Duration
	logger       *slog.Logger
	now          func() time.Time

	// running — запуски, начатые тиком
	running sync.WaitGroup
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Overlap == "" {
		cfg.Overlap = OverlapAllow
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Overlap == OverlapSkip && cfg.Locker == nil {
		cfg.Locker = lock.NewMemoryLocker()
	}

	return &Scheduler{
		store:        cfg.Store,
		registry:     cfg.Registry,
		overlap:      cfg.Overlap,
		locker:       cfg.Locker,
		lockTTL:      cfg.LockTTL,
		tickInterval: cfg.TickInterval,
		logger:       cfg.Logger,
		now:          time.Now,
	}
}

// Run выполняет тики до отмены ctx, затем ждёт начатые запуски.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"tick_interval", s.tickInterval,
		"overlap", s.overlap,
	)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		if _, err := s.Tick(ctx); err != nil {
			s.logger.Error("scheduler tick failed", "error", err)
		}

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping, waiting for running tasks...")
			s.Wait()
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Wait ждёт завершения запусков, начатых тиками.
func (s *Scheduler) Wait() {
	s.running.Wait()
}

// Tick выполняет один тик планировщика.
//
// 1. Загружает активные задачи с триггером
// 2. Задаче без next_run_at вычисляет его (первое появление)
// 3. Для наступивших задач сохраняет следующий next_run_at
// 4. Запускает исполнитель в отдельной горутине
//
// Ошибки одной задачи не блокируют обработку остальных.
// Возвращает количество начатых запусков.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	now := s.now()

	list, err := s.store.ListActiveScheduledTasks(ctx)
	if err != nil {
		return 0, fmt.Errorf("list scheduled tasks: %w", err)
	}

	fired := 0
	for _, st := range list {
		if st.IsManual() {
			continue
		}

		if st.NextRunAt == nil {
			s.initNextRun(ctx, st, now)
			continue
		}
		if !st.IsDue(now) {
			continue
		}

		next, err := NextRun(st, now)
		if err != nil {
			s.logger.Error("invalid trigger, skipping scheduled task",
				"scheduled_task_id", st.ID,
				"name", st.Name,
				"error", err,
			)
			continue
		}

		// Следующий запуск сохраняется до старта исполнителя
		st.RecordRun(now, next)
		if err := s.store.UpdateScheduleState(ctx, st); err != nil {
			s.logger.Error("failed to update schedule state",
				"scheduled_task_id", st.ID,
				"error", err,
			)
			continue
		}

		fired++
		s.running.Add(1)
		go func(st *domain.ScheduledTask) {
			defer s.running.Done()
			s.RunTask(ctx, st, domain.TriggerSchedule)
		}(st)
	}

	if fired > 0 {
		s.logger.Info("scheduler tick completed", "active", len(list), "fired", fired)
	}
	return fired, nil
}

func (s *Scheduler) initNextRun(ctx context.Context, st *domain.ScheduledTask, now time.Time) {
	next, err := NextRun(st, now)
	if err != nil {
		s.logger.Error("invalid trigger, skipping scheduled task",
			"scheduled_task_id", st.ID,
			"name", st.Name,
			"error", err,
		)
		return
	}
	st.NextRunAt = next
	if err := s.store.UpdateScheduleState(ctx, st); err != nil {
		s.logger.Error("failed to init next run", "scheduled_task_id", st.ID, "error", err)
		return
	}
	s.logger.Debug("scheduled task initialized", "scheduled_task_id", st.ID, "next_run_at", next)
}

// ExecuteNow запускает задачу вне расписания и ждёт результата.
// Неактивные и ручные задачи тоже запускаются; next_run_at не меняется.
func (s *Scheduler) ExecuteNow(ctx context.Context, id int64) (*domain.TaskExecution, error) {
	st, err := s.store.GetScheduledTask(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get scheduled task: %w", err)
	}

	st.RecordRun(s.now(), st.NextRunAt)
	if err := s.store.UpdateScheduleState(ctx, st); err != nil {
		s.logger.Warn("failed to record manual run", "scheduled_task_id", id, "error", err)
	}

	return s.RunTask(ctx, st, domain.TriggerManual), nil
}

// RunTask выполняет одну задачу и пишет запись истории.
// Никогда не паникует: любая ошибка фиксируется как failed.
func (s *Scheduler) RunTask(ctx context.Context, st *domain.ScheduledTask, trigger string) (exec *domain.TaskExecution) {
	exec = &domain.TaskExecution{
		ScheduledTaskID: st.ID,
		TaskType:        st.TaskType,
		Trigger:         trigger,
		StartedAt:       s.now(),
	}
	logger := s.logger.With("scheduled_task_id", st.ID, "task_type", st.TaskType, "trigger", trigger)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while running scheduled task",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			exec.Status = domain.ExecutionStatusFailed
			exec.ErrorCode = executor.CodeInternal
			exec.ErrorMessage = fmt.Sprintf("internal error: %v", r)
		}
		s.finish(ctx, exec, logger)
	}()

	if s.overlap == OverlapSkip {
		key := "scheduled-task:" + strconv.FormatInt(st.ID, 10)
		token, err := s.locker.TryLock(ctx, key, s.lockTTL)
		if err != nil {
			exec.Status = domain.ExecutionStatusSkipped
			if errors.Is(err, lock.ErrNotAcquired) {
				exec.Message = "previous run still in progress"
			} else {
				exec.Message = fmt.Sprintf("acquire run lock: %v", err)
			}
			return exec
		}
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
				logger.Warn("failed to release run lock", "error", err)
			}
		}()
	}

	ex := s.registry.Get(st.TaskType)
	if ex == nil {
		exec.Status = domain.ExecutionStatusFailed
		exec.ErrorCode = executor.CodeUnknownExecutor
		exec.ErrorMessage = fmt.Sprintf("%v: %s", executor.ErrUnknownExecutor, st.TaskType)
		return exec
	}

	runID := uuid.NewString()
	logger.Info("scheduled task started", "run_id", runID)

	res := executor.Run(ctx, ex, runID, domain.CloneMap(st.Params))

	exec.Message = res.Message
	exec.Result = res.Data
	if res.Success {
		exec.Status = domain.ExecutionStatusSuccess
	} else {
		exec.Status = domain.ExecutionStatusFailed
		exec.ErrorCode = res.ErrorCode
		exec.ErrorMessage = res.Message
	}
	return exec
}

// finish дописывает время и сохраняет запись истории.
func (s *Scheduler) finish(ctx context.Context, exec *domain.TaskExecution, logger *slog.Logger) {
	exec.FinishedAt = s.now()
	exec.Duration = exec.FinishedAt.Sub(exec.StartedAt)

	metrics.ObserveSchedulerRun(exec.TaskType, string(exec.Status), exec.Trigger, exec.Duration)

	if err := s.store.CreateExecution(context.WithoutCancel(ctx), exec); err != nil {
		logger.Error("failed to record execution", "error", err)
	}

	switch exec.Status {
	case domain.ExecutionStatusSuccess:
		logger.Info("scheduled task completed", "duration", exec.Duration, "message", exec.Message)
	case domain.ExecutionStatusSkipped:
		logger.Warn("scheduled task skipped", "reason", exec.Message)
	default:
		logger.Error("scheduled task failed",
			"duration", exec.Duration,
			"error_code", exec.ErrorCode,
			"error", exec.ErrorMessage,
		)
	}
}

// Executions возвращает последние запуски задачи.
func (s *Scheduler) Executions(ctx context.Context, id int64, limit int) ([]*domain.TaskExecution, error) {
	return s.store.ListExecutions(ctx, id, limit)
}
