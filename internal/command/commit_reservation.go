package command

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// CommitReservation converts a reservation into a completed sale. The held
// quantity leaves the aggregate.
func (c *Commands) CommitReservation(ctx context.Context, productID, storeID, reservationID, orderID uuid.UUID) (*Result, error) {
	inv, err := c.load(ctx, productID, storeID)
	if err != nil {
		return nil, err
	}

	if err := inv.Commit(reservationID, orderID); err != nil {
		return nil, err
	}
	if err := c.finalize(ctx, inv); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "reservation committed",
		slog.String("product_id", productID.String()),
		slog.String("store_id", storeID.String()),
		slog.String("reservation_id", reservationID.String()),
		slog.String("order_id", orderID.String()),
		slog.Int("version", inv.Version),
	)
	return c.result(inv), nil
}
