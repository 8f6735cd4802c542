package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oychao1988/content-hub-sub001/internal/store"
)

// Store — реализация store.Store поверх PostgreSQL.
type Store struct {
	*TaskRepo
	*ContentRepo
	*PoolRepo
	*ScheduleRepo

	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// NewStore создаёт Store на общем пуле соединений.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		TaskRepo:     NewTaskRepo(pool),
		ContentRepo:  NewContentRepo(pool),
		PoolRepo:     NewPoolRepo(pool),
		ScheduleRepo: NewScheduleRepo(pool),
		pool:         pool,
	}
}

// Ping проверяет соединение с БД (для /healthz).
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
