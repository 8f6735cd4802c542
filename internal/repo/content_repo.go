package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
)

// ContentRepo — репозиторий сгенерированного контента.
type ContentRepo struct {
	pool *pgxpool.Pool
}

// NewContentRepo создаёт новый ContentRepo.
func NewContentRepo(pool *pgxpool.Pool) *ContentRepo {
	return &ContentRepo{pool: pool}
}

const contentColumns = `
	id, account_id, task_id, title, body, summary, category, word_count,
	review_status, publish_status, external_id, published_at, created_at, updated_at`

// CreateContent создаёт контент и заполняет ID.
func (r *ContentRepo) CreateContent(ctx context.Context, c *domain.Content) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	query := `
		INSERT INTO contents (
			account_id, task_id, title, body, summary, category, word_count,
			review_status, publish_status, external_id, published_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query,
		c.AccountID,
		c.TaskID,
		c.Title,
		c.Body,
		c.Summary,
		c.Category,
		c.WordCount,
		c.ReviewStatus,
		c.PublishStatus,
		c.ExternalID,
		c.PublishedAt,
		c.CreatedAt,
		c.UpdatedAt,
	).Scan(&c.ID)
	return mapErr("insert content", err)
}

// GetContent возвращает контент по ID.
func (r *ContentRepo) GetContent(ctx context.Context, id int64) (*domain.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM contents WHERE id = $1`
	return scanContent(r.pool.QueryRow(ctx, query, id))
}

// GetContentByTask возвращает первый контент задачи.
func (r *ContentRepo) GetContentByTask(ctx context.Context, taskID string) (*domain.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM contents WHERE task_id = $1 ORDER BY id LIMIT 1`
	return scanContent(r.pool.QueryRow(ctx, query, taskID))
}

// UpdateContent сохраняет статусы и результат публикации.
func (r *ContentRepo) UpdateContent(ctx context.Context, c *domain.Content) error {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE contents
		SET title = $2, body = $3, summary = $4, category = $5, word_count = $6,
		    review_status = $7, publish_status = $8, external_id = $9,
		    published_at = $10, updated_at = $11
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		c.ID,
		c.Title,
		c.Body,
		c.Summary,
		c.Category,
		c.WordCount,
		c.ReviewStatus,
		c.PublishStatus,
		c.ExternalID,
		c.PublishedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return mapErr("update content", err)
	}
	return requireRow(tag)
}

func scanContent(row pgx.Row) (*domain.Content, error) {
	var c domain.Content
	err := row.Scan(
		&c.ID,
		&c.AccountID,
		&c.TaskID,
		&c.Title,
		&c.Body,
		&c.Summary,
		&c.Category,
		&c.WordCount,
		&c.ReviewStatus,
		&c.PublishStatus,
		&c.ExternalID,
		&c.PublishedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr("scan content", err)
	}
	return &c, nil
}
