package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/utafrali/inventory-es/internal/domain"
	"github.com/utafrali/inventory-es/internal/eventbus"
	"github.com/utafrali/inventory-es/internal/eventstore"
	"github.com/utafrali/inventory-es/internal/readmodel"
)

// Result is the aggregate state after a successful command.
type Result struct {
	ProductID     uuid.UUID `json:"product_id"`
	StoreID       uuid.UUID `json:"store_id"`
	Available     int       `json:"available"`
	Reserved      int       `json:"reserved"`
	Total         int       `json:"total"`
	Version       int       `json:"version"`
	ReservationID uuid.UUID `json:"reservation_id,omitempty"`
}

// Commands is the write side. Every command loads the aggregate by replaying
// its event log, applies one domain operation, then appends the emitted
// events with optimistic concurrency, refreshes the projection, and publishes
// the events on the bus.
type Commands struct {
	store     eventstore.Store
	readModel readmodel.Repository
	bus       *eventbus.Bus
	logger    *slog.Logger
}

// NewCommands wires the write side.
func NewCommands(store eventstore.Store, rm readmodel.Repository, bus *eventbus.Bus, logger *slog.Logger) *Commands {
	return &Commands{store: store, readModel: rm, bus: bus, logger: logger}
}

// load rebuilds the aggregate from its full history. An aggregate with no
// events is a fresh one at version 0.
func (c *Commands) load(ctx context.Context, productID, storeID uuid.UUID) (*domain.Inventory, error) {
	events, err := c.store.Load(ctx, domain.AggregateKey(productID, storeID), 0)
	if err != nil {
		return nil, fmt.Errorf("load aggregate: %w", err)
	}
	inv, err := domain.Replay(productID, storeID, events)
	if err != nil {
		return nil, fmt.Errorf("load aggregate: %w", err)
	}
	return inv, nil
}

// finalize drains the aggregate's pending events into the store, updates the
// projection, and publishes. The projection update is best effort: the event
// log is the source of truth and RebuildProjection repairs a stale read
// model, so a failed update is logged and the command still succeeds.
func (c *Commands) finalize(ctx context.Context, inv *domain.Inventory) error {
	events := inv.ClearPending()
	if len(events) == 0 {
		return nil
	}

	expected := inv.Version - len(events)
	if err := c.store.Append(ctx, inv.AggregateID(), events, expected); err != nil {
		return fmt.Errorf("append events: %w", err)
	}

	if err := c.readModel.Update(ctx, inv.ProductID, inv.StoreID,
		inv.Available.Value(), inv.Reserved.Value()); err != nil {
		c.logger.ErrorContext(ctx, "projection update failed",
			slog.String("aggregate_id", inv.AggregateID()),
			slog.Int("version", inv.Version),
			slog.String("error", err.Error()),
		)
	}

	for _, e := range events {
		c.bus.Publish(ctx, e)
	}
	return nil
}

func (c *Commands) result(inv *domain.Inventory) *Result {
	return &Result{
		ProductID: inv.ProductID,
		StoreID:   inv.StoreID,
		Available: inv.Available.Value(),
		Reserved:  inv.Reserved.Value(),
		Total:     inv.Total(),
		Version:   inv.Version,
	}
}
