package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"learnhub-checkout/internal/domain/model"
	ucport "learnhub-checkout/internal/domain/ports/usecase"
)

// PaymentReconciler settles attempts left in verifyingSignature or
// pollingAccess by a process that died mid-flow. The gateway already took
// the money for these, so they end success or partial, never failed.
type PaymentReconciler struct {
	checkout   ucport.CheckoutManager
	staleAfter time.Duration // how long an attempt may sit in flight before a retry
	log        *zerolog.Logger
	now        func() time.Time
}

func NewPaymentReconciler(checkout ucport.CheckoutManager, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if staleAfter <= 0 {
		staleAfter = 5 * time.Minute
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{checkout: checkout, staleAfter: staleAfter, log: &l, now: time.Now}
}

var inFlight = []model.CheckoutState{model.CheckoutVerifyingSignature, model.CheckoutPollingAccess}

// Run is one pass. It returns the number of attempts settled.
func (w *PaymentReconciler) Run(ctx context.Context) (int, error) {
	pending, err := w.checkout.StaleSessions(ctx, inFlight, w.now().Add(-w.staleAfter))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range pending {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		out, err := w.checkout.Resume(ctx, s.ID)
		if err != nil {
			w.log.Error().Err(err).Str("session_id", s.ID).Str("payment_id", s.PaymentID).Msg("resume failed")
			continue
		}
		n++
		w.log.Info().Str("session_id", s.ID).Str("outcome", string(out.Outcome)).Msg("reconciled checkout attempt")
	}
	return n, nil
}
