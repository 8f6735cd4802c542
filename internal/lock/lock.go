// Package lock — блокировки запусков ScheduledTask.
//
// Используется политикой перекрытия "skip": пока запуск задачи не
// завершился, следующий запуск той же задачи пропускается.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotAcquired — блокировка уже занята.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker — неблокирующая блокировка с TTL.
type Locker interface {
	// TryLock пытается захватить ключ. Возвращает токен для Unlock
	// или ErrNotAcquired.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)

	// Unlock освобождает ключ, если он всё ещё принадлежит token.
	Unlock(ctx context.Context, key, token string) error
}

// MemoryLocker — Locker внутри одного процесса.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]memoryLock
	now   func() time.Time
}

type memoryLock struct {
	token     string
	expiresAt time.Time
}

// NewMemoryLocker создаёт MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		locks: make(map[string]memoryLock),
		now:   time.Now,
	}
}

func (l *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.locks[key]; ok && now.Before(cur.expiresAt) {
		return "", ErrNotAcquired
	}

	token := uuid.NewString()
	l.locks[key] = memoryLock{token: token, expiresAt: now.Add(ttl)}
	return token, nil
}

func (l *MemoryLocker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.locks[key]; ok && cur.token == token {
		delete(l.locks, key)
	}
	return nil
}
