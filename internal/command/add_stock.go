package command

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// AddStock increases available stock for the (product, store) pair.
func (c *Commands) AddStock(ctx context.Context, productID, storeID uuid.UUID, quantity int, reason string) (*Result, error) {
	inv, err := c.load(ctx, productID, storeID)
	if err != nil {
		return nil, err
	}

	if err := inv.AddStock(quantity, reason); err != nil {
		return nil, err
	}
	if err := c.finalize(ctx, inv); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "stock added",
		slog.String("product_id", productID.String()),
		slog.String("store_id", storeID.String()),
		slog.Int("quantity", quantity),
		slog.Int("version", inv.Version),
	)
	return c.result(inv), nil
}
