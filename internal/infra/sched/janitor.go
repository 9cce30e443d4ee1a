package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"learnhub-checkout/internal/domain"
	"learnhub-checkout/internal/domain/model"
	ucport "learnhub-checkout/internal/domain/ports/usecase"
)

// SessionJanitor cancels sessions that opened a gateway order but never got
// a widget result back within ttl, and fails sessions stuck creating one.
type SessionJanitor struct {
	checkout ucport.CheckoutManager
	ttl      time.Duration
	log      *zerolog.Logger
	now      func() time.Time
}

func NewSessionJanitor(checkout ucport.CheckoutManager, ttl time.Duration, logger *zerolog.Logger) *SessionJanitor {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	l := logger.With().Str("component", "SessionJanitor").Logger()
	return &SessionJanitor{checkout: checkout, ttl: ttl, log: &l, now: time.Now}
}

// Run is one sweep. It returns the number of sessions closed.
func (j *SessionJanitor) Run(ctx context.Context) (int, error) {
	stale, err := j.checkout.StaleSessions(ctx, []model.CheckoutState{model.CheckoutCreatingOrder, model.CheckoutAwaitingGateway}, j.now().Add(-j.ttl))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range stale {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		if err := j.close(ctx, s); err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrLockHeld) {
				// moved on, or a callback holds it right now
				j.log.Debug().Str("session_id", s.ID).Msg("session moved on; skipping")
				continue
			}
			j.log.Error().Err(err).Str("session_id", s.ID).Str("state", string(s.State)).Msg("close stale session failed")
			continue
		}
		n++
	}
	if n > 0 {
		j.log.Info().Int("count", n).Msg("stale checkout sessions closed")
	}
	return n, nil
}

func (j *SessionJanitor) close(ctx context.Context, s *model.CheckoutSession) error {
	var err error
	switch s.State {
	case model.CheckoutCreatingOrder:
		_, err = j.checkout.Abandon(ctx, s.ID)
	default:
		_, err = j.checkout.Cancel(ctx, s.ID)
	}
	return err
}
