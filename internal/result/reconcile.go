package result

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/metrics"
	"github.com/oychao1988/content-hub-sub001/internal/publishpool"
	"github.com/oychao1988/content-hub-sub001/internal/store"
)

// Completed применяет успешный результат генерации.
//
// Создаёт Content, привязывает его к задаче и, если у задачи
// включено AutoApprove, одобряет контент и ставит его в пул публикаций.
// Результат без текста обрабатывается как failed.
func (h *Handler) Completed(ctx context.Context, taskID string, payload map[string]any, source string) (*Outcome, error) {
	task, err := h.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.IsFinished() || task.ContentID != nil {
		return skipped(task, "task already finished"), nil
	}

	body, ok := ExtractContent(payload)
	if !ok {
		h.logger.Warn("completed result has no content", "task_id", taskID, "source", source)
		return h.applyFailure(ctx, task, ErrMissingContent.Error(), source)
	}

	now := h.now()
	content, err := h.contentFor(ctx, task, body, now)
	if err != nil {
		return nil, err
	}

	task.MarkStarted(now)
	task.MarkCompleted(now, content.ID, payload)
	if err := h.save(ctx, task); err != nil {
		return nil, err
	}

	out := &Outcome{TaskID: task.TaskID, Status: task.Status, ContentID: task.ContentID}

	if task.AutoApprove && h.pool != nil {
		entry, err := h.pool.Add(ctx, publishpool.AddRequest{
			ContentID:   content.ID,
			Priority:    task.Priority,
			ScheduledAt: &now,
			AutoApprove: true,
		})
		if err != nil {
			// Контент уже создан, задача завершена: ошибка пула не откатывает результат
			h.logger.Error("auto-publish failed", "task_id", task.TaskID, "content_id", content.ID, "error", err)
			out.Message = fmt.Sprintf("content created, auto-publish failed: %v", err)
		} else {
			out.PoolEntryID = &entry.ID
		}
	}

	metrics.IncTaskResult(string(task.Status), source)
	h.notify(ctx, EventCompleted, task)
	h.logger.Info("task completed",
		"task_id", task.TaskID,
		"content_id", content.ID,
		"word_count", content.WordCount,
		"auto_approve", task.AutoApprove,
		"source", source,
	)
	return out, nil
}

// contentFor возвращает Content задачи. Запись, оставшаяся от попытки,
// на которой не сохранилась сама задача, используется повторно.
func (h *Handler) contentFor(ctx context.Context, task *domain.Task, body string, now time.Time) (*domain.Content, error) {
	existing, err := h.store.GetContentByTask(ctx, task.TaskID)
	switch {
	case err == nil:
		h.logger.Info("reusing content of unsaved completion", "task_id", task.TaskID, "content_id", existing.ID)
		return existing, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("find content: %w", err)
	}

	content := &domain.Content{
		AccountID:     task.AccountID,
		TaskID:        task.TaskID,
		Title:         domain.Truncate(task.Topic, titleMaxLen),
		Body:          body,
		Summary:       domain.Truncate(body, summaryMaxLen),
		Category:      task.Category,
		WordCount:     domain.CountWords(body),
		ReviewStatus:  domain.ReviewStatusPending,
		PublishStatus: domain.PublishStatusDraft,
		CreatedAt:     now,
	}
	if err := h.store.CreateContent(ctx, content); err != nil {
		return nil, fmt.Errorf("create content: %w", err)
	}
	return content, nil
}

// Failed применяет ошибку генерации.
// Пока retry_count < max_retries, задача возвращается в pending.
func (h *Handler) Failed(ctx context.Context, taskID, errMsg, source string) (*Outcome, error) {
	task, err := h.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.IsFinished() {
		return skipped(task, "task already finished"), nil
	}
	if errMsg == "" {
		errMsg = "generation failed"
	}
	return h.applyFailure(ctx, task, errMsg, source)
}

func (h *Handler) applyFailure(ctx context.Context, task *domain.Task, errMsg, source string) (*Outcome, error) {
	now := h.now()
	task.MarkFailed(now, errMsg)
	retried := task.ResetForRetry(now, h.taskTimeout)

	if err := h.save(ctx, task); err != nil {
		return nil, err
	}

	if retried {
		metrics.IncTaskResult("retried", source)
		h.notify(ctx, EventRetried, task)
		h.logger.Warn("task failed, scheduled for retry",
			"task_id", task.TaskID,
			"retry_count", task.RetryCount,
			"max_retries", task.MaxRetries,
			"error", errMsg,
			"source", source,
		)
	} else {
		metrics.IncTaskResult(string(task.Status), source)
		h.notify(ctx, EventFailed, task)
		h.logger.Error("task failed",
			"task_id", task.TaskID,
			"retry_count", task.RetryCount,
			"error", errMsg,
			"source", source,
		)
	}

	return &Outcome{TaskID: task.TaskID, Status: task.Status, Retried: retried, Message: errMsg}, nil
}

// Progress применяет событие прогресса: сохраняет снимок и переводит
// submitted в processing. Финального статуса не достигает.
func (h *Handler) Progress(ctx context.Context, taskID string, progress map[string]any, source string) (*Outcome, error) {
	task, err := h.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.IsFinished() {
		return skipped(task, "task already finished"), nil
	}

	if task.Progress == nil {
		task.Progress = make(map[string]any, len(progress))
	}
	for k, v := range progress {
		task.Progress[k] = v
	}
	task.MarkStarted(h.now())

	if err := h.save(ctx, task); err != nil {
		return nil, err
	}

	h.logger.Debug("task progress", "task_id", task.TaskID, "status", task.Status, "source", source)
	return &Outcome{TaskID: task.TaskID, Status: task.Status}, nil
}

// Started отмечает первое появление задачи в работе (started_at).
// Задача, уже отмеченная как начатая, не перезаписывается.
func (h *Handler) Started(ctx context.Context, taskID string) (*Outcome, error) {
	task, err := h.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.IsFinished() {
		return skipped(task, "task already finished"), nil
	}
	if task.StartedAt != nil && task.Status == domain.TaskStatusProcessing {
		return skipped(task, "task already started"), nil
	}

	task.MarkStarted(h.now())
	if err := h.save(ctx, task); err != nil {
		return nil, err
	}
	h.logger.Debug("task started", "task_id", task.TaskID, "status", task.Status)
	return &Outcome{TaskID: task.TaskID, Status: task.Status}, nil
}

// Timeout переводит просроченную задачу в timeout.
// Пока остались попытки, задача возвращается в pending.
func (h *Handler) Timeout(ctx context.Context, taskID, source string) (*Outcome, error) {
	task, err := h.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.IsFinished() {
		return skipped(task, "task already finished"), nil
	}

	now := h.now()
	if !task.IsTimedOut(now) {
		return skipped(task, "deadline not reached"), nil
	}

	msg := fmt.Sprintf("task timed out at %s", task.TimeoutAt.Format("2006-01-02T15:04:05Z07:00"))
	task.MarkTimeout(now, msg)
	retried := task.ResetForRetry(now, h.taskTimeout)
	if err := h.save(ctx, task); err != nil {
		return nil, err
	}

	if retried {
		metrics.IncTaskResult("retried", source)
		h.notify(ctx, EventRetried, task)
	} else {
		metrics.IncTaskResult(string(task.Status), source)
		h.notify(ctx, EventTimeout, task)
	}
	h.logger.Warn("task timed out",
		"task_id", task.TaskID,
		"retried", retried,
		"retry_count", task.RetryCount,
	)
	return &Outcome{TaskID: task.TaskID, Status: task.Status, Retried: retried, Message: msg}, nil
}

// ForceFail переводит нефинальную задачу в failed без повтора.
// Используется после внутренних ошибок обработки событий.
func (h *Handler) ForceFail(ctx context.Context, taskID, msg string) error {
	task, err := h.load(ctx, taskID)
	if err != nil {
		return err
	}
	if task.IsFinished() {
		return nil
	}

	task.MarkFailed(h.now(), msg)
	if err := h.save(ctx, task); err != nil {
		return err
	}
	metrics.IncTaskResult(string(task.Status), "internal")
	h.notify(ctx, EventFailed, task)
	h.logger.Error("task forced to failed", "task_id", taskID, "error", msg)
	return nil
}

// ExtractContent ищет текст результата: content, затем result.content,
// затем data.content.
func ExtractContent(payload map[string]any) (string, bool) {
	if s, ok := payload["content"].(string); ok && strings.TrimSpace(s) != "" {
		return s, true
	}
	for _, key := range []string{"result", "data"} {
		if nested, ok := payload[key].(map[string]any); ok {
			if s, ok := nested["content"].(string); ok && strings.TrimSpace(s) != "" {
				return s, true
			}
		}
	}
	return "", false
}
