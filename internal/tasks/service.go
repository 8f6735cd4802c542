// Package tasks — приём задач генерации и ручные операции над ними.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/result"
	"github.com/oychao1988/content-hub-sub001/internal/store"
)

const (
	defaultPriority   = 5
	defaultMaxRetries = 3
)

// ErrValidation — некорректный запрос на создание задачи.
var ErrValidation = errors.New("invalid task request")

// ErrNotFound — задача не найдена.
var ErrNotFound = result.ErrTaskNotFound

// ErrInvalidTransition — операция недопустима в текущем статусе.
var ErrInvalidTransition = result.ErrInvalidTransition

// Queue принимает задачу в обработку.
type Queue interface {
	Submit(taskID string) error
}

// Results — ручные операции над статусом.
type Results interface {
	Retry(ctx context.Context, taskID string) (*result.Outcome, error)
	Cancel(ctx context.Context, taskID string) (*result.Outcome, error)
	TaskTimeout() time.Duration
}

// Config — конфигурация Service.
type Config struct {
	Store   store.TaskStore
	Queue   Queue
	Results Results

	// CallbackBaseURL — база webhook; если пусто, push-канал не используется.
	CallbackBaseURL string

	Logger *slog.Logger
}

// Service создаёт задачи и передаёт их в пул воркеров.
type Service struct {
	store       store.TaskStore
	queue       Queue
	results     Results
	callbackURL string
	validate    *validator.Validate
	logger      *slog.Logger
	now         func() time.Time
}

// New создаёт Service.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	callback := ""
	if base := strings.TrimRight(cfg.CallbackBaseURL, "/"); base != "" {
		callback = base + "/api/v1/webhooks/generation"
	}

	return &Service{
		store:       cfg.Store,
		queue:       cfg.Queue,
		results:     cfg.Results,
		callbackURL: callback,
		validate:    validator.New(),
		logger:      cfg.Logger,
		now:         time.Now,
	}
}

// SubmitRequest — запрос на генерацию.
type SubmitRequest struct {
	AccountID    int64  `json:"account_id" validate:"gt=0"`
	Topic        string `json:"topic" validate:"required,max=500"`
	Category     string `json:"category,omitempty" validate:"max=100"`
	Requirements string `json:"requirements,omitempty"`
	Tone         string `json:"tone,omitempty" validate:"max=50"`
	Priority     int    `json:"priority,omitempty" validate:"omitempty,min=1,max=10"`
	MaxRetries   *int   `json:"max_retries,omitempty" validate:"omitempty,min=0,max=10"`
	AutoApprove  bool   `json:"auto_approve"`
}

// Submit создаёт задачу в pending и передаёт её в очередь.
//
// Если очереди заполнены, задача остаётся pending и будет
// выбрана воркером из хранилища.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*domain.Task, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	priority := req.Priority
	if priority == 0 {
		priority = defaultPriority
	}
	maxRetries := defaultMaxRetries
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}

	now := s.now()
	task := &domain.Task{
		TaskID:       uuid.NewString(),
		AccountID:    req.AccountID,
		Topic:        req.Topic,
		Category:     req.Category,
		Requirements: req.Requirements,
		Tone:         req.Tone,
		Status:       domain.TaskStatusPending,
		Priority:     priority,
		MaxRetries:   maxRetries,
		AutoApprove:  req.AutoApprove,
		CallbackURL:  s.callbackURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if timeout := s.results.TaskTimeout(); timeout > 0 {
		deadline := now.Add(timeout)
		task.TimeoutAt = &deadline
	}

	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	if err := s.queue.Submit(task.TaskID); err != nil {
		s.logger.Warn("task not queued, left for polling",
			"task_id", task.TaskID,
			"error", err,
		)
	}

	s.logger.Info("task created",
		"task_id", task.TaskID,
		"account_id", task.AccountID,
		"priority", task.Priority,
		"auto_approve", task.AutoApprove,
	)
	return task, nil
}

// Get возвращает задачу по task_id.
func (s *Service) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, taskID)
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// Retry вручную возвращает failed или timeout задачу в pending
// и сразу ставит её в очередь.
func (s *Service) Retry(ctx context.Context, taskID string) (*domain.Task, error) {
	if _, err := s.results.Retry(ctx, taskID); err != nil {
		return nil, err
	}
	if err := s.queue.Submit(taskID); err != nil {
		s.logger.Warn("retried task not queued, left for polling", "task_id", taskID, "error", err)
	}
	return s.Get(ctx, taskID)
}

// Cancel отменяет нефинальную задачу.
func (s *Service) Cancel(ctx context.Context, taskID string) (*domain.Task, error) {
	if _, err := s.results.Cancel(ctx, taskID); err != nil {
		return nil, err
	}
	return s.Get(ctx, taskID)
}
