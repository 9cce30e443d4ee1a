// File: internal/infra/events/bus.go
package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/domain/ports/adapter"
)

var _ adapter.EventPublisher = (*Bus)(nil)

// Handler receives an event. Returned errors are logged, never propagated.
type Handler func(ctx context.Context, e model.Event) error

// Bus is a synchronous publish/subscribe hub living as long as the process.
// Handlers run in subscription order on the publisher's goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      zerolog.Logger
}

func NewBus(logger *zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		log:      logger.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers h for events with the given name.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// On subscribes a handler typed to one concrete event.
func On[E model.Event](b *Bus, fn func(ctx context.Context, e E) error) {
	var zero E
	b.Subscribe(zero.EventName(), func(ctx context.Context, e model.Event) error {
		typed, ok := e.(E)
		if !ok {
			return nil
		}
		return fn(ctx, typed)
	})
}

func (b *Bus) Publish(ctx context.Context, e model.Event) {
	if e == nil {
		return
	}
	b.mu.RLock()
	hs := append([]Handler(nil), b.handlers[e.EventName()]...)
	b.mu.RUnlock()

	for _, h := range hs {
		b.dispatch(ctx, e, h)
	}
}

func (b *Bus) dispatch(ctx context.Context, e model.Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Str("event", e.EventName()).Msg("event handler panicked")
		}
	}()
	if err := h(ctx, e); err != nil {
		b.log.Warn().Err(err).Str("event", e.EventName()).Msg("event handler failed")
	}
}
