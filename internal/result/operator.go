package result

import (
	"context"
	"errors"
	"fmt"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/metrics"
)

// Ошибки ручных операций.
var (
	// ErrInvalidTransition — операция недопустима в текущем статусе.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrRetryExhausted — попытки исчерпаны.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

// Cancel отменяет нефинальную задачу.
func (h *Handler) Cancel(ctx context.Context, taskID string) (*Outcome, error) {
	task, err := h.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.IsFinished() {
		return nil, fmt.Errorf("%w: task %s is %s", ErrInvalidTransition, taskID, task.Status)
	}

	task.MarkCancelled(h.now())
	if err := h.save(ctx, task); err != nil {
		return nil, err
	}

	metrics.IncTaskResult(string(task.Status), SourceAPI)
	h.notify(ctx, EventCancelled, task)
	h.logger.Info("task cancelled", "task_id", taskID)
	return &Outcome{TaskID: task.TaskID, Status: task.Status}, nil
}

// Retry возвращает задачу в failed или timeout обратно в pending.
// Разрешено, только пока retry_count < max_retries.
func (h *Handler) Retry(ctx context.Context, taskID string) (*Outcome, error) {
	task, err := h.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != domain.TaskStatusFailed && task.Status != domain.TaskStatusTimeout {
		return nil, fmt.Errorf("%w: task %s is %s", ErrInvalidTransition, taskID, task.Status)
	}
	if !task.ResetForRetry(h.now(), h.taskTimeout) {
		return nil, fmt.Errorf("%w: %d of %d used", ErrRetryExhausted, task.RetryCount, task.MaxRetries)
	}
	if err := h.save(ctx, task); err != nil {
		return nil, err
	}

	h.notify(ctx, EventRetried, task)
	h.logger.Info("task reset for retry", "task_id", taskID, "retry_count", task.RetryCount)
	return &Outcome{TaskID: task.TaskID, Status: task.Status, Retried: true}, nil
}
