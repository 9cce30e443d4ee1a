// File: internal/usecase/access_poller.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/domain/ports/adapter"
	"learnhub-checkout/internal/infra/metrics"
)

// PollResult is the tri-state outcome of waiting for course access.
type PollResult string

const (
	PollConfirmed PollResult = "confirmed"
	PollExhausted PollResult = "exhausted"
	PollErrored   PollResult = "errored"
)

// PollOutcome carries the result plus the freshest profile seen.
type PollOutcome struct {
	Result   PollResult
	Attempts int
	Profile  *model.UserProfile
	Err      error
}

var errAccessNotGranted = errors.New("access not granted yet")

// Compile-time check
var _ AccessPoller = (*accessPoller)(nil)

type AccessPoller interface {
	Poll(ctx context.Context, courseID, userID string) PollOutcome
}

type accessPoller struct {
	access   adapter.AccessService
	profiles adapter.ProfileService
	attempts int
	interval time.Duration
	log      *zerolog.Logger
}

// NewAccessPoller checks access at most attempts times, interval apart,
// refreshing the profile before every check.
func NewAccessPoller(access adapter.AccessService, profiles adapter.ProfileService, attempts int, interval time.Duration, logger *zerolog.Logger) *accessPoller {
	if attempts < 1 {
		attempts = 1
	}
	if interval <= 0 {
		interval = time.Millisecond
	}
	l := logger.With().Str("component", "access_poller").Logger()
	return &accessPoller{access: access, profiles: profiles, attempts: attempts, interval: interval, log: &l}
}

func (p *accessPoller) Poll(ctx context.Context, courseID, userID string) PollOutcome {
	out := PollOutcome{}
	var lastErr error

	b := retry.WithMaxRetries(uint64(p.attempts-1), retry.NewConstant(p.interval))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		out.Attempts++

		if prof, err := p.profiles.Profile(ctx, userID); err != nil {
			p.log.Debug().Err(err).Int("attempt", out.Attempts).Msg("profile refresh failed")
		} else {
			out.Profile = prof
		}

		ok, err := p.access.CheckAccess(ctx, courseID, userID)
		if err != nil {
			lastErr = err
			p.log.Warn().Err(err).Int("attempt", out.Attempts).Str("course_id", courseID).Msg("access check failed")
			return retry.RetryableError(err)
		}
		lastErr = nil
		if !ok {
			return retry.RetryableError(errAccessNotGranted)
		}
		return nil
	})

	switch {
	case err == nil:
		out.Result = PollConfirmed
	case lastErr != nil || ctx.Err() != nil:
		out.Result = PollErrored
		out.Err = err
	default:
		out.Result = PollExhausted
	}
	metrics.ObservePollAttempts(string(out.Result), out.Attempts)
	return out
}
