package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/utafrali/inventory-es/internal/domain"
)

// Handler processes one published event. Returned errors are logged by the
// bus and never propagate to the publisher.
type Handler func(ctx context.Context, e domain.Event) error

// Subscription identifies one registered handler for Unsubscribe.
// Go functions are not comparable, so subscriptions are token-based.
type Subscription struct {
	topic string
	id    uint64
}

// Bus is a process-local pub/sub over event kind tags. Publish fans out to
// all handlers concurrently and waits for the whole fan-out; a failing or
// panicking handler is isolated and logged.
type Bus struct {
	logger *slog.Logger

	mu       sync.RWMutex
	nextID   uint64
	handlers map[string]map[uint64]Handler
}

// New creates an empty bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		logger:   logger,
		handlers: make(map[string]map[uint64]Handler),
	}
}

// Subscribe registers a handler under the given event kind and returns its
// subscription token.
func (b *Bus) Subscribe(topic string, h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	if b.handlers[topic] == nil {
		b.handlers[topic] = make(map[uint64]Handler)
	}
	b.handlers[topic][b.nextID] = h
	return &Subscription{topic: topic, id: b.nextID}
}

// Unsubscribe removes the handler identified by the subscription. Unknown
// subscriptions are ignored.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if hs, ok := b.handlers[sub.topic]; ok {
		delete(hs, sub.id)
		if len(hs) == 0 {
			delete(b.handlers, sub.topic)
		}
	}
}

// Publish invokes every handler subscribed to the event's kind concurrently
// and returns after all of them have finished. Handler failures and panics
// are logged, never returned: completion of Publish does not imply success of
// every handler.
func (b *Bus) Publish(ctx context.Context, e domain.Event) {
	b.mu.RLock()
	snapshot := make([]Handler, 0, len(b.handlers[e.Kind()]))
	for _, h := range b.handlers[e.Kind()] {
		snapshot = append(snapshot, h)
	}
	b.mu.RUnlock()

	if len(snapshot) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, h := range snapshot {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					b.logger.ErrorContext(ctx, "event handler panicked",
						slog.String("event_type", e.Kind()),
						slog.String("aggregate_id", e.Head().AggregateID),
						slog.Any("panic", rec),
					)
				}
			}()
			if err := h(ctx, e); err != nil {
				b.logger.ErrorContext(ctx, "event handler failed",
					slog.String("event_type", e.Kind()),
					slog.String("aggregate_id", e.Head().AggregateID),
					slog.Int("version", e.Head().Version),
					slog.String("error", err.Error()),
				)
			}
		}(h)
	}
	wg.Wait()
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[string]map[uint64]Handler)
}

// HandlerCount returns the number of handlers subscribed to the topic, or the
// total across all topics when topic is empty.
func (b *Bus) HandlerCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if topic != "" {
		return len(b.handlers[topic])
	}
	total := 0
	for _, hs := range b.handlers {
		total += len(hs)
	}
	return total
}

// String describes the bus for debugging.
func (b *Bus) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return fmt.Sprintf("eventbus(%d topics)", len(b.handlers))
}
