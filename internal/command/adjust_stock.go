package command

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// AdjustStock sets available stock to an absolute value, recording the old
// quantity for audit. Reserved stock is untouched.
func (c *Commands) AdjustStock(ctx context.Context, productID, storeID uuid.UUID, newQuantity int, reason string) (*Result, error) {
	inv, err := c.load(ctx, productID, storeID)
	if err != nil {
		return nil, err
	}

	old := inv.Available.Value()
	if err := inv.Adjust(newQuantity, reason); err != nil {
		return nil, err
	}
	if err := c.finalize(ctx, inv); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "stock adjusted",
		slog.String("product_id", productID.String()),
		slog.String("store_id", storeID.String()),
		slog.Int("old_quantity", old),
		slog.Int("new_quantity", newQuantity),
		slog.String("reason", reason),
		slog.Int("version", inv.Version),
	)
	return c.result(inv), nil
}
