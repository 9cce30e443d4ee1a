package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/domain/ports/adapter"
	"learnhub-checkout/internal/infra/metrics"
)

var _ adapter.InstallmentService = (*planCacheDecorator)(nil)

// planCacheDecorator caches plan lists per course and filter. Per-user
// history is never cached.
type planCacheDecorator struct {
	inner adapter.InstallmentService
	cache RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewPlanCacheDecorator(inner adapter.InstallmentService, cache RedisClient, ttl time.Duration, logger *zerolog.Logger) adapter.InstallmentService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	l := logger.With().Str("component", "plan_cache").Logger()
	return &planCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: &l}
}

func planKey(courseID string, f adapter.PlanFilter) string {
	return fmt.Sprintf("plans:%s:%s:%s", courseID, model.NormalizePlanType(f.PlanType), f.UserID)
}

func (d *planCacheDecorator) Plans(ctx context.Context, courseID string, f adapter.PlanFilter) ([]*model.InstallmentPlan, error) {
	key := planKey(courseID, f)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var plans []*model.InstallmentPlan
		if json.Unmarshal([]byte(val), &plans) == nil {
			metrics.IncCacheRequest("plans", "hit")
			return plans, nil
		}
	} else if !IsNil(err) {
		d.log.Warn().Err(err).Str("key", key).Msg("plan cache read failed")
	}

	metrics.IncCacheRequest("plans", "miss")
	plans, err := d.inner.Plans(ctx, courseID, f)
	if err != nil {
		return nil, err
	}
	if len(plans) > 0 {
		bytes, _ := json.Marshal(plans)
		if err := d.cache.Set(ctx, key, bytes, d.ttl); err != nil {
			d.log.Warn().Err(err).Str("key", key).Msg("plan cache write failed")
		}
	}
	return plans, nil
}

func (d *planCacheDecorator) History(ctx context.Context, courseID, userID string) ([]model.PaymentRecord, error) {
	return d.inner.History(ctx, courseID, userID)
}
