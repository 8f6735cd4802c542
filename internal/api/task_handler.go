package api

import (
	"encoding/json"
	"net/http"

	"github.com/oychao1988/content-hub-sub001/internal/tasks"
)

// SubmitTask создаёт задачу генерации.
// POST /api/v1/tasks
func (h *Handler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	var req tasks.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	task, err := h.tasks.Submit(r.Context(), req)
	if HandleError(w, h.logger, err) {
		return
	}

	Created(w, SubmitTaskResponse{
		TaskID:   task.TaskID,
		Status:   task.Status,
		Priority: task.Priority,
	})
}

// GetTask возвращает задачу по task_id.
// GET /api/v1/tasks/{id}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Get(r.Context(), r.PathValue("id"))
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, task)
}

// RetryTask повторяет failed или timeout задачу.
// POST /api/v1/tasks/{id}/retry
func (h *Handler) RetryTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Retry(r.Context(), r.PathValue("id"))
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, task)
}

// CancelTask отменяет нефинальную задачу.
// POST /api/v1/tasks/{id}/cancel
func (h *Handler) CancelTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Cancel(r.Context(), r.PathValue("id"))
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, task)
}
