package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/publishpool"
)

// TypeAddToPool — тип исполнителя добавления в пул публикаций.
const TypeAddToPool = "add_to_pool"

// PoolAdder добавляет контент в пул.
type PoolAdder interface {
	Add(ctx context.Context, req publishpool.AddRequest) (*domain.PublishPoolEntry, error)
}

type addToPoolParams struct {
	ContentID   int64      `json:"content_id" validate:"gt=0"`
	Priority    int        `json:"priority" validate:"omitempty,min=1,max=10"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	MaxRetries  int        `json:"max_retries" validate:"omitempty,min=1,max=10"`
	AutoApprove bool       `json:"auto_approve"`
}

// AddToPool ставит контент в пул публикаций.
type AddToPool struct {
	pool PoolAdder
}

// NewAddToPool создаёт исполнитель.
func NewAddToPool(pool PoolAdder) *AddToPool {
	return &AddToPool{pool: pool}
}

// Type возвращает тип исполнителя.
func (e *AddToPool) Type() string { return TypeAddToPool }

// Description возвращает описание для списка исполнителей.
func (e *AddToPool) Description() string {
	return "adds approved content to the publish pool"
}

// ValidateParams проверяет content_id и диапазоны.
func (e *AddToPool) ValidateParams(params map[string]any) error {
	var p addToPoolParams
	return DecodeParams(params, &p)
}

// Execute добавляет контент в пул. Отсутствующий контент — CONTENT_NOT_FOUND.
func (e *AddToPool) Execute(ctx context.Context, _ string, params map[string]any) *Result {
	var p addToPoolParams
	if err := DecodeParams(params, &p); err != nil {
		return Fail(CodeValidation, err.Error())
	}

	entry, err := e.pool.Add(ctx, publishpool.AddRequest{
		ContentID:   p.ContentID,
		Priority:    p.Priority,
		ScheduledAt: p.ScheduledAt,
		MaxRetries:  p.MaxRetries,
		AutoApprove: p.AutoApprove,
	})
	if err != nil {
		switch {
		case errors.Is(err, publishpool.ErrContentNotFound):
			return Fail(CodeContentNotFound, err.Error())
		case errors.Is(err, publishpool.ErrNotApproved), errors.Is(err, publishpool.ErrAlreadyInPool):
			return Fail(CodeValidation, err.Error())
		default:
			return Fail(CodeInternal, fmt.Sprintf("add to pool: %v", err))
		}
	}

	return Succeed("content added to publish pool", map[string]any{
		"entry_id":   entry.ID,
		"content_id": entry.ContentID,
		"priority":   entry.Priority,
	})
}
