package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/utafrali/inventory-es/internal/domain"
)

// RebuildProjection replays every aggregate's event log and rewrites its read
// model record. Repair path for a projection that drifted from the log, for
// example after a crashed best-effort update. Returns the number of
// aggregates rebuilt; an aggregate that fails to rebuild is logged and
// skipped so one corrupt log does not block repairing the rest.
func (c *Commands) RebuildProjection(ctx context.Context) (int, error) {
	aggregates, err := c.store.ListAggregates(ctx)
	if err != nil {
		return 0, fmt.Errorf("rebuild projection: %w", err)
	}

	rebuilt := 0
	for _, aggregateID := range aggregates {
		productID, storeID, err := splitAggregateID(aggregateID)
		if err != nil {
			c.logger.ErrorContext(ctx, "projection rebuild skipped aggregate",
				slog.String("aggregate_id", aggregateID),
				slog.String("error", err.Error()),
			)
			continue
		}

		events, err := c.store.Load(ctx, aggregateID, 0)
		if err != nil {
			c.logger.ErrorContext(ctx, "projection rebuild skipped aggregate",
				slog.String("aggregate_id", aggregateID),
				slog.String("error", err.Error()),
			)
			continue
		}
		inv, err := domain.Replay(productID, storeID, events)
		if err != nil {
			c.logger.ErrorContext(ctx, "projection rebuild skipped aggregate",
				slog.String("aggregate_id", aggregateID),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := c.readModel.Update(ctx, productID, storeID,
			inv.Available.Value(), inv.Reserved.Value()); err != nil {
			return rebuilt, fmt.Errorf("rebuild projection %s: %w", aggregateID, err)
		}
		rebuilt++
	}

	c.logger.InfoContext(ctx, "projection rebuilt", slog.Int("aggregates", rebuilt))
	return rebuilt, nil
}

func splitAggregateID(aggregateID string) (uuid.UUID, uuid.UUID, error) {
	parts := strings.SplitN(aggregateID, ":", 2)
	if len(parts) != 2 {
		return uuid.Nil, uuid.Nil, fmt.Errorf("malformed aggregate id %q", aggregateID)
	}
	productID, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("malformed aggregate id %q: %w", aggregateID, err)
	}
	storeID, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("malformed aggregate id %q: %w", aggregateID, err)
	}
	return productID, storeID, nil
}
