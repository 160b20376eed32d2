package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/inventory-es/internal/domain"
	"github.com/utafrali/inventory-es/internal/eventbus"
	"github.com/utafrali/inventory-es/pkg/breaker"
	pkgkafka "github.com/utafrali/inventory-es/pkg/kafka"
	"github.com/utafrali/inventory-es/pkg/logger"
)

const (
	relaySource        = "inventory-es"
	relayAggregateType = "inventory"
)

// relayTopics maps event kinds to their Kafka topics.
var relayTopics = map[string]string{
	domain.KindStockAdded:           "inventory.stock.added",
	domain.KindStockReserved:        "inventory.stock.reserved",
	domain.KindReservationCommitted: "inventory.reservation.committed",
	domain.KindReservationReleased:  "inventory.reservation.released",
	domain.KindStockAdjusted:        "inventory.stock.adjusted",
}

// Publisher is the outbound Kafka surface the relay needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Relay forwards inventory events to Kafka for downstream consumers. The
// producer sits behind a circuit breaker: when the brokers are down the relay
// fails fast instead of stalling command fan-out, and the events remain in
// the store for later reconciliation.
type Relay struct {
	producer Publisher
	breaker  *breaker.Breaker
	logger   *slog.Logger
	subs     []*eventbus.Subscription
}

// NewRelay creates a relay over the producer and breaker.
func NewRelay(producer Publisher, b *breaker.Breaker, logger *slog.Logger) *Relay {
	return &Relay{producer: producer, breaker: b, logger: logger}
}

// Attach subscribes the relay to every inventory event kind.
func (r *Relay) Attach(bus *eventbus.Bus) {
	for _, kind := range domain.EventKinds() {
		r.subs = append(r.subs, bus.Subscribe(kind, r.handle))
	}
}

// Detach removes the subscriptions added by Attach.
func (r *Relay) Detach(bus *eventbus.Bus) {
	for _, sub := range r.subs {
		bus.Unsubscribe(sub)
	}
	r.subs = nil
}

func (r *Relay) handle(ctx context.Context, e domain.Event) error {
	topic, ok := relayTopics[e.Kind()]
	if !ok {
		return fmt.Errorf("relay: no topic for event kind %q", e.Kind())
	}

	envelope, err := pkgkafka.NewEvent(e.Kind(), e.Head().AggregateID, relayAggregateType, relaySource, e)
	if err != nil {
		return fmt.Errorf("relay: encode %s: %w", e.Kind(), err)
	}
	envelope.WithVersion(e.Head().Version)
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		envelope.WithCorrelationID(correlationID)
	}

	err = r.breaker.Do(func() error {
		return r.producer.Publish(ctx, topic, envelope)
	})
	if err != nil {
		return fmt.Errorf("relay %s to %s: %w", e.Kind(), topic, err)
	}
	return nil
}
