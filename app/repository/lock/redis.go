package lock

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"stock-service/app/domain"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"
)

//go:embed release_lock.lua
var releaseLockLua string

var releaseScript = redis.NewScript(releaseLockLua)

type redisLocker struct {
	client        *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
}

func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewRedisLocker hands out locks as SET NX PX keys. The ttl bounds how long a crashed
// holder can block a product.
func NewRedisLocker(client *redis.Client, ttl, retryInterval time.Duration) domain.Locker {
	return &redisLocker{
		client:        client,
		ttl:           ttl,
		retryInterval: retryInterval,
	}
}

func lockKey(key domain.AccountKey) string {
	return fmt.Sprintf("stock:lock:%d:%d", key.TenantID, key.ProductID)
}

func (l *redisLocker) Acquire(ctx context.Context, key domain.AccountKey, timeout time.Duration) (domain.Lock, error) {
	token, err := uuid.NewV4()
	if err != nil {
		slog.ErrorContext(ctx, "[redisLocker] Acquire", "uuid.NewV4", err)
		return nil, err
	}

	name := lockKey(key)
	deadline := time.Now().Add(timeout)
	var lastErr error

	for {
		ok, err := l.client.SetNX(ctx, name, token.String(), l.ttl).Result()
		if err == nil && ok {
			return &redisLock{client: l.client, key: key, name: name, token: token.String()}, nil
		}
		if err != nil {
			lastErr = err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}

		wait := min(l.retryInterval, remaining)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrLockTimeout, key, ctx.Err())
		case <-time.After(wait):
		}
	}

	if lastErr != nil {
		slog.WarnContext(ctx, "[redisLocker] Acquire", "key", name, "storeError", lastErr)
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrLockTimeout, key, lastErr)
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrLockTimeout, key)
}

type redisLock struct {
	client *redis.Client
	key    domain.AccountKey
	name   string
	token  string

	once sync.Once
	err  error
}

func (l *redisLock) Key() domain.AccountKey {
	return l.key
}

// Release deletes the key only while it still holds our token.
func (l *redisLock) Release(ctx context.Context) error {
	l.once.Do(func() {
		err := releaseScript.Run(ctx, l.client, []string{l.name}, l.token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			slog.ErrorContext(ctx, "[redisLock] Release", "script.Run", err)
			l.err = err
		}
	})
	return l.err
}
