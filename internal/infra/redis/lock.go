// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"learnhub-checkout/internal/domain"
	"learnhub-checkout/internal/domain/ports/adapter"
)

var _ adapter.Locker = (*RedisLocker)(nil)

// RedisLocker is a SET NX lock whose value is a per-holder token, so only the
// holder can release it.
type RedisLocker struct {
	client  RedisClient
	retries uint64
	wait    time.Duration
}

func NewLocker(c RedisClient) *RedisLocker {
	return &RedisLocker{client: c, retries: 4, wait: 50 * time.Millisecond}
}

// TryLock returns domain.ErrLockHeld when the key stays taken through every
// retry.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	b := retry.WithMaxRetries(l.retries, retry.NewConstant(l.wait))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		ok, err := l.client.SetNX(ctx, key, token, ttl)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("setnx %s: %w", key, err))
		}
		if !ok {
			return retry.RetryableError(domain.ErrLockHeld)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Unlock is a no-op when the lock already expired or changed hands.
func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	if _, err := l.client.CompareAndDelete(ctx, key, token); err != nil {
		return fmt.Errorf("unlock %s: %w", key, err)
	}
	return nil
}
