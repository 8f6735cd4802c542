package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	mux.Handle("GET /healthz", http.HandlerFunc(h.Healthz))
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}

	// Webhook генератора
	if h.webhook != nil {
		mux.Handle("POST /api/v1/webhooks/generation", chain(http.HandlerFunc(h.GenerationWebhook)))
	}

	// Tasks
	if h.tasks != nil {
		mux.Handle("POST /api/v1/tasks", chain(http.HandlerFunc(h.SubmitTask)))
		mux.Handle("GET /api/v1/tasks/{id}", chain(http.HandlerFunc(h.GetTask)))
		mux.Handle("POST /api/v1/tasks/{id}/retry", chain(http.HandlerFunc(h.RetryTask)))
		mux.Handle("POST /api/v1/tasks/{id}/cancel", chain(http.HandlerFunc(h.CancelTask)))
	}

	// Scheduled tasks
	if h.scheduler != nil {
		mux.Handle("POST /api/v1/scheduled-tasks/{id}/execute", chain(http.HandlerFunc(h.ExecuteScheduledTask)))
	}

	// Publish pool
	if h.pool != nil {
		mux.Handle("POST /api/v1/publish-pool/{id}/publish", chain(http.HandlerFunc(h.PublishPoolEntry)))
		mux.Handle("GET /api/v1/publish-pool/stats", chain(http.HandlerFunc(h.PoolStats)))
	}

	// Executors
	if h.executors != nil {
		mux.Handle("GET /api/v1/executors", chain(http.HandlerFunc(h.ListExecutors)))
	}
}

// Routes возвращает mux со всеми маршрутами.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}
