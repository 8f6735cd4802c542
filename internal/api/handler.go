package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/executor"
	"github.com/oychao1988/content-hub-sub001/internal/publishpool"
	"github.com/oychao1988/content-hub-sub001/internal/tasks"
	"github.com/oychao1988/content-hub-sub001/internal/webhook"
)

// TaskService — операции над задачами генерации.
type TaskService interface {
	Submit(ctx context.Context, req tasks.SubmitRequest) (*domain.Task, error)
	Get(ctx context.Context, taskID string) (*domain.Task, error)
	Retry(ctx context.Context, taskID string) (*domain.Task, error)
	Cancel(ctx context.Context, taskID string) (*domain.Task, error)
}

// WebhookReceiver применяет событие генератора из сырого тела.
type WebhookReceiver interface {
	HandleRaw(ctx context.Context, body []byte, signature, source string) (*webhook.Response, error)
}

// ScheduleRunner запускает ScheduledTask вне расписания.
type ScheduleRunner interface {
	ExecuteNow(ctx context.Context, id int64) (*domain.TaskExecution, error)
}

// PoolService — ручная публикация и состояние пула.
type PoolService interface {
	PublishNow(ctx context.Context, entryID int64) (*publishpool.Outcome, error)
	Stats(ctx context.Context) (domain.PoolStats, error)
}

// ExecutorLister перечисляет зарегистрированные executor'ы.
type ExecutorLister interface {
	List() map[string]executor.Info
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	tasks     TaskService
	webhook   WebhookReceiver
	scheduler ScheduleRunner
	pool      PoolService
	executors ExecutorLister
	health    func(ctx context.Context) error
	metrics   http.Handler
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
//
// Любая зависимость может быть nil: соответствующие маршруты
// не регистрируются.
type Config struct {
	Tasks     TaskService
	Webhook   WebhookReceiver
	Scheduler ScheduleRunner
	Pool      PoolService
	Executors ExecutorLister

	// Health — проверка зависимостей для /healthz (например, ping БД).
	Health func(ctx context.Context) error

	// Metrics — обработчик /metrics (обычно promhttp.Handler()).
	Metrics http.Handler

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{
		tasks:     cfg.Tasks,
		webhook:   cfg.Webhook,
		scheduler: cfg.Scheduler,
		pool:      cfg.Pool,
		executors: cfg.Executors,
		health:    cfg.Health,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// Healthz проверяет готовность процесса.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.logger.Warn("health check failed", "error", err)
			Error(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
			return
		}
	}
	Success(w, map[string]string{"status": "ok"})
}

// ListExecutors возвращает зарегистрированные типы executor'ов.
// GET /api/v1/executors
func (h *Handler) ListExecutors(w http.ResponseWriter, r *http.Request) {
	infos := ExecutorsFromRegistry(h.executors.List())
	List(w, infos, len(infos))
}
