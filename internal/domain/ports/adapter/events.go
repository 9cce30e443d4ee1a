package adapter

import (
	"context"

	"learnhub-checkout/internal/domain/model"
)

// EventPublisher fans domain events out to in-process subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, e model.Event)
}
