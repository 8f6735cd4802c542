package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/tasks"
)

// TypeContentGeneration — тип исполнителя генерации контента.
const TypeContentGeneration = "content_generation"

// TaskSubmitter создаёт задачи генерации.
type TaskSubmitter interface {
	Submit(ctx context.Context, req tasks.SubmitRequest) (*domain.Task, error)
}

// ContentGeneration создаёт задачу генерации и не ждёт её завершения:
// результат приходит через поллер или webhook.
type ContentGeneration struct {
	tasks TaskSubmitter
}

// NewContentGeneration создаёт исполнитель генерации.
func NewContentGeneration(t TaskSubmitter) *ContentGeneration {
	return &ContentGeneration{tasks: t}
}

// Type возвращает тип исполнителя.
func (e *ContentGeneration) Type() string { return TypeContentGeneration }

// Description возвращает описание для списка исполнителей.
func (e *ContentGeneration) Description() string {
	return "submits a content generation task to the external generator"
}

// ValidateParams проверяет account_id, topic и диапазоны.
func (e *ContentGeneration) ValidateParams(params map[string]any) error {
	var req tasks.SubmitRequest
	return DecodeParams(params, &req)
}

// Execute создаёт задачу в pending и передаёт её воркерам.
func (e *ContentGeneration) Execute(ctx context.Context, _ string, params map[string]any) *Result {
	var req tasks.SubmitRequest
	if err := DecodeParams(params, &req); err != nil {
		return Fail(CodeValidation, err.Error())
	}

	task, err := e.tasks.Submit(ctx, req)
	if err != nil {
		if errors.Is(err, tasks.ErrValidation) {
			return Fail(CodeValidation, err.Error())
		}
		return Fail(CodeInternal, fmt.Sprintf("submit generation task: %v", err))
	}

	return Succeed("generation task submitted", map[string]any{
		"task_id":  task.TaskID,
		"status":   string(task.Status),
		"priority": task.Priority,
	})
}
