package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/store"
)

// PoolRepo — репозиторий пула публикаций.
type PoolRepo struct {
	pool *pgxpool.Pool
}

// NewPoolRepo создаёт новый PoolRepo.
func NewPoolRepo(pool *pgxpool.Pool) *PoolRepo {
	return &PoolRepo{pool: pool}
}

const entryColumns = `
	id, content_id, priority, scheduled_at, status, retry_count, max_retries,
	last_error, external_id, added_at, published_at, updated_at`

// AddPoolEntry добавляет запись. Вторая активная запись для того же
// контента отклоняется уникальным индексом (ErrAlreadyExists).
func (r *PoolRepo) AddPoolEntry(ctx context.Context, e *domain.PublishPoolEntry) error {
	now := time.Now().UTC()
	if e.AddedAt.IsZero() {
		e.AddedAt = now
	}
	e.UpdatedAt = now

	query := `
		INSERT INTO publish_pool (
			content_id, priority, scheduled_at, status, retry_count, max_retries,
			last_error, external_id, added_at, published_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query,
		e.ContentID,
		e.Priority,
		e.ScheduledAt,
		e.Status,
		e.RetryCount,
		e.MaxRetries,
		e.LastError,
		e.ExternalID,
		e.AddedAt,
		e.PublishedAt,
		e.UpdatedAt,
	).Scan(&e.ID)
	return mapErr("insert pool entry", err)
}

// GetPoolEntry возвращает запись по ID.
func (r *PoolRepo) GetPoolEntry(ctx context.Context, id int64) (*domain.PublishPoolEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM publish_pool WHERE id = $1`
	return scanEntry(r.pool.QueryRow(ctx, query, id))
}

// UpdatePoolEntry сохраняет статус и итог попытки.
func (r *PoolRepo) UpdatePoolEntry(ctx context.Context, e *domain.PublishPoolEntry) error {
	e.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE publish_pool
		SET priority = $2, scheduled_at = $3, status = $4, retry_count = $5,
		    max_retries = $6, last_error = $7, external_id = $8,
		    published_at = $9, updated_at = $10
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		e.ID,
		e.Priority,
		e.ScheduledAt,
		e.Status,
		e.RetryCount,
		e.MaxRetries,
		e.LastError,
		e.ExternalID,
		e.PublishedAt,
		e.UpdatedAt,
	)
	if err != nil {
		return mapErr("update pool entry", err)
	}
	return requireRow(tag)
}

// ClaimPoolEntry переводит запись из pending в publishing условным UPDATE.
// Из двух конкурентных вызовов строку получает только один.
func (r *PoolRepo) ClaimPoolEntry(ctx context.Context, id int64, now time.Time) (*domain.PublishPoolEntry, error) {
	query := `
		UPDATE publish_pool
		SET status = 'publishing', updated_at = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + entryColumns
	entry, err := scanEntry(r.pool.QueryRow(ctx, query, id, now))
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	// Строка не обновлена: либо её нет, либо статус уже другой
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM publish_pool WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, mapErr("check pool entry", err)
	}
	if !exists {
		return nil, store.ErrNotFound
	}
	return nil, store.ErrConflict
}

// ListEligibleEntries возвращает pending записи, готовые к публикации.
func (r *PoolRepo) ListEligibleEntries(ctx context.Context, now time.Time, limit int) ([]*domain.PublishPoolEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM publish_pool
		WHERE status = 'pending' AND (scheduled_at IS NULL OR scheduled_at <= $1)
		ORDER BY priority DESC, scheduled_at ASC NULLS FIRST, added_at ASC, id ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, now, limitOrAll(limit))
	if err != nil {
		return nil, mapErr("list eligible entries", err)
	}
	defer rows.Close()

	var entries []*domain.PublishPoolEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, mapErr("list eligible entries", rows.Err())
}

// FindActiveEntry возвращает pending или publishing запись для контента.
func (r *PoolRepo) FindActiveEntry(ctx context.Context, contentID int64) (*domain.PublishPoolEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM publish_pool
		WHERE content_id = $1 AND status IN ('pending', 'publishing')
		LIMIT 1
	`
	return scanEntry(r.pool.QueryRow(ctx, query, contentID))
}

// PoolStats возвращает количество записей по статусам.
func (r *PoolRepo) PoolStats(ctx context.Context) (domain.PoolStats, error) {
	var stats domain.PoolStats
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM publish_pool GROUP BY status`)
	if err != nil {
		return stats, mapErr("pool stats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status domain.PoolStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return stats, mapErr("scan pool stats", err)
		}
		switch status {
		case domain.PoolStatusPending:
			stats.Pending = n
		case domain.PoolStatusPublishing:
			stats.Publishing = n
		case domain.PoolStatusPublished:
			stats.Published = n
		case domain.PoolStatusFailed:
			stats.Failed = n
		}
	}
	return stats, mapErr("pool stats", rows.Err())
}

func scanEntry(row pgx.Row) (*domain.PublishPoolEntry, error) {
	var e domain.PublishPoolEntry
	err := row.Scan(
		&e.ID,
		&e.ContentID,
		&e.Priority,
		&e.ScheduledAt,
		&e.Status,
		&e.RetryCount,
		&e.MaxRetries,
		&e.LastError,
		&e.ExternalID,
		&e.AddedAt,
		&e.PublishedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr("scan pool entry", err)
	}
	return &e, nil
}
