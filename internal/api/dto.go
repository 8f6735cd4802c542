package api

import (
	"sort"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/executor"
)

// Task DTOs

// SubmitTaskResponse — ответ на создание задачи.
type SubmitTaskResponse struct {
	TaskID   string            `json:"task_id"`
	Status   domain.TaskStatus `json:"status"`
	Priority int               `json:"priority"`
}

// Execution DTOs

// ExecutionResponse — итог ручного запуска ScheduledTask.
type ExecutionResponse struct {
	ScheduledTaskID int64                  `json:"scheduled_task_id"`
	TaskType        string                 `json:"task_type"`
	Trigger         string                 `json:"trigger"`
	Status          domain.ExecutionStatus `json:"status"`
	Success         bool                   `json:"success"`
	Message         string                 `json:"message,omitempty"`
	Result          map[string]any         `json:"result,omitempty"`
	ErrorCode       string                 `json:"error_code,omitempty"`
	ErrorMessage    string                 `json:"error_message,omitempty"`
	DurationMS      int64                  `json:"duration_ms"`
}

// ExecutionFromDomain конвертирует domain.TaskExecution в ExecutionResponse.
func ExecutionFromDomain(e *domain.TaskExecution) ExecutionResponse {
	return ExecutionResponse{
		ScheduledTaskID: e.ScheduledTaskID,
		TaskType:        e.TaskType,
		Trigger:         e.Trigger,
		Status:          e.Status,
		Success:         e.Status == domain.ExecutionStatusSuccess,
		Message:         e.Message,
		Result:          e.Result,
		ErrorCode:       e.ErrorCode,
		ErrorMessage:    e.ErrorMessage,
		DurationMS:      e.Duration.Milliseconds(),
	}
}

// Executor DTOs

// ExecutorResponse — описание зарегистрированного executor'а.
type ExecutorResponse struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// ExecutorsFromRegistry конвертирует Registry.List в список, отсортированный по типу.
func ExecutorsFromRegistry(infos map[string]executor.Info) []ExecutorResponse {
	out := make([]ExecutorResponse, 0, len(infos))
	for _, info := range infos {
		out = append(out, ExecutorResponse{Type: info.Type, Description: info.Description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
