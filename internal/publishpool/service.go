// Package publishpool — пул публикаций с приоритетами и ограниченными повторами.
//
// Запись попадает в пул, когда контент одобрен к публикации. Публикатор
// выбирает готовые записи (priority DESC, scheduled_at ASC, added_at ASC),
// переводит каждую в publishing и вызывает внешнее API. Ошибка одной
// записи не останавливает обработку остальных.
package publishpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/publishapi"
	"github.com/oychao1988/content-hub-sub001/internal/store"
)

const (
	defaultBatchSize  = 10
	defaultMaxRetries = 3
	defaultPriority   = 5
)

// Ошибки пула.
var (
	// ErrContentNotFound — контент не найден.
	ErrContentNotFound = errors.New("content not found")

	// ErrEntryNotFound — запись пула не найдена.
	ErrEntryNotFound = errors.New("pool entry not found")

	// ErrNotApproved — контент не одобрен к публикации.
	ErrNotApproved = errors.New("content is not approved")

	// ErrAlreadyInPool — у контента уже есть активная запись.
	ErrAlreadyInPool = errors.New("content already in publish pool")

	// ErrNotPending — запись не в pending.
	ErrNotPending = errors.New("pool entry is not pending")
)

// Результаты обработки записи.
const (
	ResultPublished   = "published"
	ResultRescheduled = "rescheduled"
	ResultFailed      = "failed"
	ResultSkipped     = "skipped"
)

// Notifier получает уведомления об успешных публикациях.
type Notifier interface {
	NotifyPublished(ctx context.Context, entry *domain.PublishPoolEntry, content *domain.Content)
}

// Store — хранилища, нужные пулу.
type Store interface {
	store.PoolStore
	store.ContentStore
}

// Config — конфигурация сервиса.
type Config struct {
	Store     Store
	Publisher publishapi.Publisher

	// Notifier — опционально.
	Notifier Notifier

	// BatchSize — размер выборки по умолчанию.
	BatchSize int

	// MaxRetries — лимит попыток для новых записей.
	MaxRetries int

	Logger *slog.Logger
}

// Service — пул публикаций.
type Service struct {
	store      Store
	publisher  publishapi.Publisher
	notifier   Notifier
	batchSize  int
	maxRetries int
	logger     *slog.Logger
	now        func() time.Time
}

// New создаёт сервис пула.
func New(cfg Config) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Service{
		store:      cfg.Store,
		publisher:  cfg.Publisher,
		notifier:   cfg.Notifier,
		batchSize:  cfg.BatchSize,
		maxRetries: cfg.MaxRetries,
		logger:     cfg.Logger,
		now:        time.Now,
	}
}

// AddRequest — параметры добавления в пул.
type AddRequest struct {
	ContentID int64

	// Priority 1–10. 0 — по умолчанию (5).
	Priority int

	// ScheduledAt — не публиковать раньше. nil — сразу.
	ScheduledAt *time.Time

	// MaxRetries — 0 — по умолчанию сервиса.
	MaxRetries int

	// AutoApprove — одобрить контент, если он ещё не одобрен.
	AutoApprove bool
}

// Add добавляет контент в пул публикаций.
func (s *Service) Add(ctx context.Context, req AddRequest) (*domain.PublishPoolEntry, error) {
	content, err := s.store.GetContent(ctx, req.ContentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrContentNotFound, req.ContentID)
		}
		return nil, fmt.Errorf("get content: %w", err)
	}

	existing, err := s.store.FindActiveEntry(ctx, content.ID)
	switch {
	case err == nil:
		return existing, fmt.Errorf("%w: content %d, entry %d", ErrAlreadyInPool, content.ID, existing.ID)
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("find active entry: %w", err)
	}

	now := s.now()
	if !content.IsApproved() {
		if !req.AutoApprove {
			return nil, fmt.Errorf("%w: content %d is %s", ErrNotApproved, content.ID, content.ReviewStatus)
		}
		content.Approve(now)
	}
	content.PublishStatus = domain.PublishStatusQueued
	if err := s.store.UpdateContent(ctx, content); err != nil {
		return nil, fmt.Errorf("update content: %w", err)
	}

	entry := &domain.PublishPoolEntry{
		ContentID:   content.ID,
		Priority:    clampPriority(req.Priority),
		ScheduledAt: req.ScheduledAt,
		Status:      domain.PoolStatusPending,
		MaxRetries:  req.MaxRetries,
		AddedAt:     now,
	}
	if entry.MaxRetries <= 0 {
		entry.MaxRetries = s.maxRetries
	}
	if err := s.store.AddPoolEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("add pool entry: %w", err)
	}

	s.logger.Info("content added to publish pool",
		"entry_id", entry.ID,
		"content_id", content.ID,
		"priority", entry.Priority,
	)
	return entry, nil
}

// Eligible возвращает готовые к публикации записи в порядке обработки.
func (s *Service) Eligible(ctx context.Context, limit int) ([]*domain.PublishPoolEntry, error) {
	if limit <= 0 {
		limit = s.batchSize
	}
	entries, err := s.store.ListEligibleEntries(ctx, s.now(), limit)
	if err != nil {
		return nil, fmt.Errorf("list eligible entries: %w", err)
	}
	return entries, nil
}

// Stats возвращает количество записей по статусам.
func (s *Service) Stats(ctx context.Context) (domain.PoolStats, error) {
	return s.store.PoolStats(ctx)
}

func clampPriority(p int) int {
	switch {
	case p == 0:
		return defaultPriority
	case p < 1:
		return 1
	case p > 10:
		return 10
	default:
		return p
	}
}
