package adapter

import (
	"context"

	"learnhub-checkout/internal/domain/model"
)

// GatewayWidget hands an order to the third-party checkout widget and blocks
// until the widget reports success or the user dismisses it.
type GatewayWidget interface {
	Open(ctx context.Context, sessionID string, handle model.OrderHandle) (model.GatewayResult, error)
}
