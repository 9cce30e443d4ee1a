package adapter

import (
	"context"

	"learnhub-checkout/internal/domain/model"
)

// ReceiptRenderer turns reconciled payment facts into a document.
type ReceiptRenderer interface {
	ContentType() string
	Render(ctx context.Context, facts model.ReceiptFacts) ([]byte, error)
}

// ReceiptMailer delivers a rendered receipt to the payer.
type ReceiptMailer interface {
	Send(ctx context.Context, r *model.Receipt) error
}
