package events

import (
	"context"

	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/infra/metrics"
)

// AllEvents lists every event name the checkout flow publishes.
var AllEvents = []string{
	model.EventProfileUpdated,
	model.EventEnrollmentStarted,
	model.EventEnrollmentCompleted,
	model.EventAccessPending,
	model.EventReceiptIssued,
}

// SubscribeMetrics counts every published event by name.
func SubscribeMetrics(b *Bus) {
	for _, name := range AllEvents {
		b.Subscribe(name, func(ctx context.Context, e model.Event) error {
			metrics.IncEvent(e.EventName())
			return nil
		})
	}
}

// ViewInvalidator drops a cached installment view.
type ViewInvalidator interface {
	Invalidate(userID, courseID string)
}

// SubscribeViewInvalidation forgets the optimistic view once access is known
// to lag behind the payment, so the next read goes to the backend.
func SubscribeViewInvalidation(b *Bus, views ViewInvalidator) {
	On(b, func(ctx context.Context, e model.AccessPending) error {
		views.Invalidate(e.UserID, e.CourseID)
		return nil
	})
}
