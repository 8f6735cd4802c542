package executor

import (
	"context"
	"log/slog"

	"github.com/oychao1988/content-hub-sub001/internal/domain"
	"github.com/oychao1988/content-hub-sub001/internal/publishpool"
)

// PoolService — операции пула публикаций, нужные исполнителям.
type PoolService interface {
	PoolAdder
	Publisher
	Eligible(ctx context.Context, limit int) ([]*domain.PublishPoolEntry, error)
}

var _ PoolService = (*publishpool.Service)(nil)

// DefaultRegistry создаёт реестр со всеми исполнителями.
func DefaultRegistry(tasks TaskSubmitter, pool PoolService, logger *slog.Logger) *Registry {
	r := NewRegistry()

	publishing := NewPublishing(pool)

	r.Register(NewContentGeneration(tasks))
	r.Register(NewAddToPool(pool))
	r.Register(publishing)
	r.Register(NewPublishPoolScanner(pool, publishing))
	r.Register(NewWorkflow(r, logger))

	return r
}
