package api

import (
	"net/http"
)

// PublishPoolEntry публикует запись пула немедленно, игнорируя scheduled_at.
// POST /api/v1/publish-pool/{id}/publish
func (h *Handler) PublishPoolEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		BadRequest(w, "invalid pool entry id")
		return
	}

	out, err := h.pool.PublishNow(r.Context(), id)
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, out)
}

// PoolStats возвращает количество записей пула по статусам.
// GET /api/v1/publish-pool/stats
func (h *Handler) PoolStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.pool.Stats(r.Context())
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, stats)
}
