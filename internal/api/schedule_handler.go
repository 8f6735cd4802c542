package api

import (
	"net/http"
)

// ExecuteScheduledTask запускает ScheduledTask немедленно и ждёт результата.
// POST /api/v1/scheduled-tasks/{id}/execute
//
// Неудачный запуск executor'а — это тоже 200: итог в теле ответа.
func (h *Handler) ExecuteScheduledTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		BadRequest(w, "invalid scheduled task id")
		return
	}

	exec, err := h.scheduler.ExecuteNow(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, ExecutionFromDomain(exec))
}
