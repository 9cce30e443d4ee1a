package usecase

import (
	"context"
	"time"

	"learnhub-checkout/internal/domain/model"
)

// CheckoutManager is the slice of the checkout use case the background
// workers need.
type CheckoutManager interface {
	Cancel(ctx context.Context, sessionID string) (*model.CheckoutSession, error)
	// Abandon fails a session whose order creation never finished.
	Abandon(ctx context.Context, sessionID string) (*model.CheckoutSession, error)
	// Resume drives a session left mid-flight after verification to a settled state.
	Resume(ctx context.Context, sessionID string) (*model.CheckoutSession, error)
	StaleSessions(ctx context.Context, states []model.CheckoutState, olderThan time.Time) ([]*model.CheckoutSession, error)
}
