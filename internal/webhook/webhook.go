// Package webhook принимает push-события генератора.
//
// События completed, failed и progress применяются через тот же
// обработчик результатов, что и у поллера. Перед изменением проверяется
// статус задачи: для задачи в финальном статусе событие пропускается
// (skipped). Любая внутренняя ошибка переводит задачу в failed
// с диагностикой и не выходит наружу.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/metrics"
	"github.com/oychao1988/content-hub-sub001/internal/result"
	"github.com/oychao1988/content-hub-sub001/internal/store"
)

// SignatureHeader — заголовок с подписью тела.
const SignatureHeader = "X-Webhook-Signature"

// Типы событий.
const (
	EventCompleted = "completed"
	EventFailed    = "failed"
	EventProgress  = "progress"
)

// Ошибки приёма событий.
var (
	// ErrInvalidSignature — подпись отсутствует или не совпадает.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrInvalidEvent — событие не разобрано или неизвестно.
	ErrInvalidEvent = errors.New("invalid webhook event")

	// ErrTaskNotFound — задача события не найдена.
	ErrTaskNotFound = result.ErrTaskNotFound
)

// Event — событие генератора.
type Event struct {
	Event    string         `json:"event"`
	TaskID   string         `json:"taskId"`
	Result   map[string]any `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
	Progress map[string]any `json:"progress,omitempty"`
}

// Response — ответ на событие.
type Response struct {
	Success bool              `json:"success"`
	TaskID  string            `json:"task_id"`
	Event   string            `json:"event"`
	Skipped bool              `json:"skipped"`
	Status  domain.TaskStatus `json:"status,omitempty"`
	Message string            `json:"message,omitempty"`
}

// Results — обработчик результатов.
type Results interface {
	Completed(ctx context.Context, taskID string, payload map[string]any, source string) (*result.Outcome, error)
	Failed(ctx context.Context, taskID, errMsg, source string) (*result.Outcome, error)
	Progress(ctx context.Context, taskID string, progress map[string]any, source string) (*result.Outcome, error)
	ForceFail(ctx context.Context, taskID, msg string) error
}

// Config — конфигурация Receiver.
type Config struct {
	Tasks   store.TaskStore
	Results Results

	// Secret — ключ HMAC-SHA256. Пусто — подпись не проверяется.
	Secret string

	Logger *slog.Logger
}

// Receiver применяет события генератора.
type Receiver struct {
	tasks   store.TaskStore
	results Results
	secret  []byte
	logger  *slog.Logger
}

// New создаёт Receiver.
func New(cfg Config) *Receiver {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Receiver{
		tasks:   cfg.Tasks,
		results: cfg.Results,
		secret:  []byte(cfg.Secret),
		logger:  cfg.Logger,
	}
}

// SignatureRequired сообщает, настроена ли проверка подписи.
func (r *Receiver) SignatureRequired() bool {
	return len(r.secret) > 0
}

// HandleRaw проверяет подпись тела, разбирает и применяет событие.
func (r *Receiver) HandleRaw(ctx context.Context, body []byte, signature, source string) (*Response, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	if r.SignatureRequired() {
		if err := VerifySignature(r.secret, raw, signature); err != nil {
			metrics.IncWebhookEvent("unknown", "rejected")
			return nil, err
		}
	}

	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return r.Handle(ctx, ev, source)
}

// Handle применяет событие.
//
// Ошибки разбора и неизвестная задача возвращаются вызывающему.
// Внутренняя ошибка или паника при обработке переводит задачу в failed
// и возвращается как Response с Success = false.
func (r *Receiver) Handle(ctx context.Context, ev Event, source string) (resp *Response, err error) {
	if ev.TaskID == "" {
		return nil, fmt.Errorf("%w: taskId is required", ErrInvalidEvent)
	}
	switch ev.Event {
	case EventCompleted, EventFailed, EventProgress:
	default:
		return nil, fmt.Errorf("%w: unknown event %q", ErrInvalidEvent, ev.Event)
	}

	logger := r.logger.With("task_id", ev.TaskID, "event", ev.Event, "source", source)

	// Проверка идемпотентности до любых изменений
	task, err := r.tasks.GetTask(ctx, ev.TaskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.IncWebhookEvent(ev.Event, "not_found")
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, ev.TaskID)
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task.IsFinished() {
		metrics.IncWebhookEvent(ev.Event, "skipped")
		logger.Info("webhook event for finished task skipped", "status", task.Status)
		return &Response{
			Success: true,
			TaskID:  ev.TaskID,
			Event:   ev.Event,
			Skipped: true,
			Status:  task.Status,
			Message: "task already finished",
		}, nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic while handling webhook event", "panic", rec, "stack", string(debug.Stack()))
			resp, err = r.internalFailure(ctx, ev, fmt.Sprintf("internal error handling %s event: %v", ev.Event, rec), logger), nil
		}
	}()

	out, herr := r.dispatch(ctx, ev, source)
	if herr != nil {
		logger.Error("failed to handle webhook event", "error", herr)
		return r.internalFailure(ctx, ev, fmt.Sprintf("internal error handling %s event: %v", ev.Event, herr), logger), nil
	}

	metrics.IncWebhookEvent(ev.Event, resultLabel(out))
	return &Response{
		Success: true,
		TaskID:  ev.TaskID,
		Event:   ev.Event,
		Skipped: out.Skipped,
		Status:  out.Status,
		Message: out.Message,
	}, nil
}

func (r *Receiver) dispatch(ctx context.Context, ev Event, source string) (*result.Outcome, error) {
	switch ev.Event {
	case EventCompleted:
		return r.results.Completed(ctx, ev.TaskID, ev.Result, source)
	case EventFailed:
		return r.results.Failed(ctx, ev.TaskID, ev.Error, source)
	default:
		return r.results.Progress(ctx, ev.TaskID, ev.Progress, source)
	}
}

// internalFailure переводит задачу в failed после внутренней ошибки.
func (r *Receiver) internalFailure(ctx context.Context, ev Event, msg string, logger *slog.Logger) *Response {
	metrics.IncWebhookEvent(ev.Event, "error")

	status := domain.TaskStatusFailed
	if err := r.results.ForceFail(ctx, ev.TaskID, msg); err != nil {
		logger.Error("failed to force task to failed", "error", err)
		status = ""
	}
	return &Response{
		Success: false,
		TaskID:  ev.TaskID,
		Event:   ev.Event,
		Status:  status,
		Message: msg,
	}
}

func resultLabel(out *result.Outcome) string {
	switch {
	case out.Skipped:
		return "skipped"
	case out.Retried:
		return "retried"
	default:
		return "applied"
	}
}

// Sign возвращает подпись тела: HMAC-SHA256 канонического JSON в Base64.
// Канонический JSON — компактный, ключи отсортированы, HTML-символы не экранируются.
func Sign(secret []byte, payload map[string]any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", fmt.Errorf("canonical json: %w", err)
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// VerifySignature сравнивает подпись за постоянное время.
func VerifySignature(secret []byte, payload map[string]any, signature string) error {
	if signature == "" {
		return fmt.Errorf("%w: missing %s header", ErrInvalidSignature, SignatureHeader)
	}
	expected, err := Sign(secret, payload)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}
