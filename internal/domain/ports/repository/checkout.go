package repository

import (
	"context"
	"time"

	"learnhub-checkout/internal/domain/model"
)

// -----------------------------
// Checkout sessions
// -----------------------------

// CheckoutSessionRepository holds live session state shared by API replicas.
type CheckoutSessionRepository interface {
	Save(ctx context.Context, s *model.CheckoutSession) error
	FindByID(ctx context.Context, id string) (*model.CheckoutSession, error)
}

// CheckoutLedgerRepository is the durable audit trail of every attempt.
type CheckoutLedgerRepository interface {
	Record(ctx context.Context, tx Tx, s *model.CheckoutSession) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.CheckoutSession, error)
	ListStale(ctx context.Context, tx Tx, states []model.CheckoutState, olderThan time.Time, limit int) ([]*model.CheckoutSession, error)
}

// -----------------------------
// Receipts
// -----------------------------

type ReceiptRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Receipt) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Receipt, error)
	ListByUser(ctx context.Context, tx Tx, userID, courseID string) ([]*model.Receipt, error)
}
