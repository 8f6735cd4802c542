package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/generator"
	"github.com/oychao1988/content-hub-sub001/internal/metrics"
	"github.com/oychao1988/content-hub-sub001/internal/result"
	"github.com/oychao1988/content-hub-sub001/internal/store"
)

// processTask перечитывает задачу, отправляет её генератору и фиксирует итог.
// Паника внутри итерации не останавливает цикл воркера.
// Возвращает false, если итог не удалось записать в хранилище.
func (w *Worker) processTask(ctx context.Context, taskID string) (stored bool) {
	defer w.pool.release(taskID)
	defer func() {
		if r := recover(); r != nil {
			w.failed.Add(1)
			w.logger.Error("panic while processing task",
				"task_id", taskID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			stored = true
		}
	}()

	// Текущая итерация доводится до конца даже после Stop
	ctx = context.WithoutCancel(ctx)

	// 1. Перечитываем задачу
	task, err := w.tasks.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			w.logger.Warn("queued task not found", "task_id", taskID)
			return true
		}
		w.logger.Error("failed to load task", "task_id", taskID, "error", err)
		return false
	}

	// 2. Повторная доставка или устаревший ID
	if task.Status != domain.TaskStatusPending {
		metrics.IncTaskSubmission("skipped")
		w.logger.Debug("task is not pending, skipping", "task_id", taskID, "status", task.Status)
		return true
	}

	// 3. Отправляем генератору
	if err := w.submit(ctx, task); err != nil {
		w.failed.Add(1)
		metrics.IncTaskSubmission("failed")
		out, ferr := w.results.Failed(ctx, taskID, fmt.Sprintf("submit to generator: %v", err), result.SourceWorker)
		if ferr != nil {
			w.logger.Error("failed to record submission failure", "task_id", taskID, "error", ferr)
			return false
		}
		w.logger.Warn("task submission failed",
			"task_id", taskID,
			"status", out.Status,
			"retried", out.Retried,
			"error", err,
		)
		return true
	}

	// 4. Фиксируем submitted. Задача остаётся pending и будет отправлена снова
	if _, err := w.results.Submitted(ctx, taskID); err != nil {
		w.logger.Error("failed to record submission", "task_id", taskID, "error", err)
		return false
	}
	w.processed.Add(1)
	return true
}

func (w *Worker) submit(ctx context.Context, task *domain.Task) error {
	ctx, cancel := context.WithTimeout(ctx, w.submitTimeout)
	defer cancel()

	_, err := w.generator.Create(ctx, generator.CreateRequest{
		TaskID:       task.TaskID,
		AccountID:    task.AccountID,
		Topic:        task.Topic,
		Category:     task.Category,
		Requirements: task.Requirements,
		Tone:         task.Tone,
		CallbackURL:  task.CallbackURL,
	})
	return err
}

// poll выбирает pending задачи из хранилища в свою очередь.
// Возвращает количество поставленных в очередь задач.
func (w *Worker) poll(ctx context.Context) int {
	tasks, err := w.tasks.ListPendingTasks(ctx, w.pollBatch)
	if err != nil {
		w.logger.Error("failed to list pending tasks", "error", err)
		return 0
	}

	queued := 0
	for _, task := range tasks {
		if !w.pool.claim(task.TaskID) {
			continue
		}
		if !w.enqueue(task.TaskID) {
			w.pool.release(task.TaskID)
			break
		}
		queued++
	}

	if queued > 0 {
		w.logger.Debug("poll queued pending tasks", "count", queued)
	}
	return queued
}
