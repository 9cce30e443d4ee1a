package adapter

import (
	"context"
	"time"
)

// Locker is a short-lived distributed mutex.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// RateLimiter counts hits per key in a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// TaskQueue runs background work. Submit fails instead of blocking when full.
type TaskQueue interface {
	Submit(task func(ctx context.Context) error) error
}
