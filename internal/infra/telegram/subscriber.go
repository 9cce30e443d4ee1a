package telegram

import (
	"context"
	"fmt"
	"time"

	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/domain/ports/adapter"
	"learnhub-checkout/internal/infra/events"
)

const notifyTimeout = 10 * time.Second

// Subscribe forwards payment events to the admin chat. Sends run on the
// task queue so publishers never wait on Telegram.
func Subscribe(bus *events.Bus, n adapter.Notifier, queue adapter.TaskQueue) {
	send := func(text string) error {
		return queue.Submit(func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
			defer cancel()
			return n.Notify(ctx, text)
		})
	}

	events.On(bus, func(ctx context.Context, e model.EnrollmentCompleted) error {
		return send(FormatEnrollmentCompleted(e))
	})
	events.On(bus, func(ctx context.Context, e model.AccessPending) error {
		return send(FormatAccessPending(e))
	})
}

func FormatEnrollmentCompleted(e model.EnrollmentCompleted) string {
	what := "full payment"
	if e.InstallmentNumber > 0 {
		what = fmt.Sprintf("installment %d", e.InstallmentNumber)
	}
	return fmt.Sprintf("✅ Payment received\nUser: %s\nCourse: %s\nFor: %s\nAmount: %s\nPayment: %s",
		e.UserID, e.CourseID, what, model.FormatMoney(e.Amount, e.Currency), e.PaymentID)
}

func FormatAccessPending(e model.AccessPending) string {
	return fmt.Sprintf("⚠️ Paid but access not confirmed\nUser: %s\nCourse: %s\nPayment: %s\nSession: %s\nReason: %s",
		e.UserID, e.CourseID, e.PaymentID, e.SessionID, e.Reason)
}
