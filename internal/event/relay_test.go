package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/inventory-es/internal/domain"
	"github.com/utafrali/inventory-es/internal/eventbus"
	"github.com/utafrali/inventory-es/pkg/breaker"
	pkgkafka "github.com/utafrali/inventory-es/pkg/kafka"
)

type capturingPublisher struct {
	mu     sync.Mutex
	err    error
	topics []string
	events []*pkgkafka.Event
}

func (p *capturingPublisher) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func newTestBreaker(t *testing.T, threshold uint32) *breaker.Breaker {
	t.Helper()
	return breaker.New(breaker.Config{
		Name:             "kafka-relay-" + uuid.NewString(),
		FailureThreshold: threshold,
		Timeout:          time.Minute,
	}, newTestLogger())
}

func TestRelay_PublishesEnvelope(t *testing.T) {
	logger := newTestLogger()
	bus := eventbus.New(logger)
	publisher := &capturingPublisher{}

	relay := NewRelay(publisher, newTestBreaker(t, 5), logger)
	relay.Attach(bus)

	productID, storeID := uuid.New(), uuid.New()
	bus.Publish(context.Background(), emitted(t, productID, storeID))

	require.Len(t, publisher.events, 1)
	assert.Equal(t, []string{"inventory.stock.added"}, publisher.topics)

	envelope := publisher.events[0]
	assert.Equal(t, domain.KindStockAdded, envelope.EventType)
	assert.Equal(t, domain.AggregateKey(productID, storeID), envelope.AggregateID)
	assert.Equal(t, "inventory", envelope.AggregateType)
	assert.Equal(t, "inventory-es", envelope.Source)
	assert.Equal(t, 1, envelope.Version)

	var payload domain.StockAdded
	require.NoError(t, envelope.UnmarshalData(&payload))
	assert.Equal(t, 10, payload.Quantity)
}

func TestRelay_TopicPerKind(t *testing.T) {
	logger := newTestLogger()
	bus := eventbus.New(logger)
	publisher := &capturingPublisher{}

	relay := NewRelay(publisher, newTestBreaker(t, 5), logger)
	relay.Attach(bus)
	ctx := context.Background()

	productID, storeID := uuid.New(), uuid.New()
	inv := domain.NewInventory(productID, storeID)
	require.NoError(t, inv.AddStock(100, "restock"))
	reservationID, err := inv.Reserve(30, uuid.New(), nil)
	require.NoError(t, err)
	require.NoError(t, inv.Commit(reservationID, uuid.New()))
	require.NoError(t, inv.Adjust(50, "cycle count"))

	for _, e := range inv.ClearPending() {
		bus.Publish(ctx, e)
	}

	assert.Equal(t, []string{
		"inventory.stock.added",
		"inventory.stock.reserved",
		"inventory.reservation.committed",
		"inventory.stock.adjusted",
	}, publisher.topics)
}

func TestRelay_BreakerTripsAfterConsecutiveFailures(t *testing.T) {
	publisher := &capturingPublisher{err: errors.New("brokers unreachable")}
	b := newTestBreaker(t, 2)
	relay := NewRelay(publisher, b, newTestLogger())
	ctx := context.Background()

	e := emitted(t, uuid.New(), uuid.New())

	err := relay.handle(ctx, e)
	assert.ErrorContains(t, err, "brokers unreachable")
	err = relay.handle(ctx, e)
	assert.ErrorContains(t, err, "brokers unreachable")

	// Third call is rejected by the open breaker without reaching the producer.
	err = relay.handle(ctx, e)
	assert.ErrorIs(t, err, breaker.ErrCircuitOpen)
}

func TestRelay_AttachDetach(t *testing.T) {
	logger := newTestLogger()
	bus := eventbus.New(logger)

	relay := NewRelay(&capturingPublisher{}, newTestBreaker(t, 5), logger)
	relay.Attach(bus)
	assert.Equal(t, len(domain.EventKinds()), bus.HandlerCount(""))

	relay.Detach(bus)
	assert.Zero(t, bus.HandlerCount(""))
}
