package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisLocker — Locker поверх Redis (SET NX PX + Lua compare-and-delete).
type RedisLocker struct {
	cli    redis.UniversalClient
	prefix string
}

// NewRedisLocker создаёт RedisLocker. prefix добавляется к каждому ключу.
func NewRedisLocker(cli redis.UniversalClient, prefix string) *RedisLocker {
	return &RedisLocker{cli: cli, prefix: prefix}
}

// NewRedisClient создаёт клиента и проверяет соединение.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(pingCtx).Err(); err != nil {
		cli.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return cli, nil
}

// TryLock ставит ключ с TTL, если его нет, и возвращает токен владельца.
// Занятый ключ даёт ErrNotAcquired.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.cli.SetNX(ctx, l.prefix+key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return "", ErrNotAcquired
	}
	return token, nil
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

// Unlock удаляет ключ, только если он принадлежит token.
// Истёкшая или чужая блокировка не считается ошибкой.
func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	if err := luaUnlock.Run(ctx, l.cli, []string{l.prefix + key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis unlock: %w", err)
	}
	return nil
}
