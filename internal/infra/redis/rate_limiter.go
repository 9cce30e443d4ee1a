package redis

import (
	"context"
	"fmt"
	"time"

	"learnhub-checkout/internal/domain/ports/adapter"
)

var _ adapter.RateLimiter = (*RateLimiter)(nil)

// RateLimiter is a fixed-window counter: INCR, and EXPIRE on the first hit.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow reports whether this hit is within limit for the current window.
// A limit <= 0 allows everything without touching Redis.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	n, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", key, err)
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			return false, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return n <= int64(limit), nil
}

// UserActionKey scopes a limit to one user and action, e.g.
// rate_limit:u1:checkout.
func UserActionKey(userID, action string) string {
	return fmt.Sprintf("rate_limit:%s:%s", userID, action)
}
