package adapter

import (
	"context"

	"learnhub-checkout/internal/domain/model"
)

// CatalogService is the read-only catalog/subscription collaborator.
type CatalogService interface {
	Course(ctx context.Context, courseID string) (*model.Course, error)
	Subscriptions(ctx context.Context, courseID string) ([]model.Subscription, error)
}

// PlanFilter narrows a plan lookup. Empty fields are ignored.
type PlanFilter struct {
	PlanType string
	UserID   string
}

// InstallmentService serves admin-configured plans and the per-user history.
type InstallmentService interface {
	Plans(ctx context.Context, courseID string, f PlanFilter) ([]*model.InstallmentPlan, error)
	// History returns the user's payment history from the dedicated timeline endpoint.
	History(ctx context.Context, courseID, userID string) ([]model.PaymentRecord, error)
}

// OrderService is the order/ledger collaborator.
type OrderService interface {
	PaidOrders(ctx context.Context, courseID, userID string) ([]model.Order, error)
	CreateOrder(ctx context.Context, req model.OrderRequest) (*model.OrderHandle, error)
	// VerifyPayment returns nil only when the backend accepted the signature.
	VerifyPayment(ctx context.Context, req model.VerifyRequest) error
}

// ProfileService is the source of enrollment data.
type ProfileService interface {
	Profile(ctx context.Context, userID string) (*model.UserProfile, error)
}

// AccessService confirms the backend granted course access.
type AccessService interface {
	CheckAccess(ctx context.Context, courseID, userID string) (bool, error)
}
