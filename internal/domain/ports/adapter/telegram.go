package adapter

import "context"

// Notifier pushes short operator-facing messages (e.g. to a Telegram chat).
type Notifier interface {
	Notify(ctx context.Context, text string) error
}
