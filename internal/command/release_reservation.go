package command

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// ReleaseReservation cancels a reservation, returning the held quantity to
// available stock.
func (c *Commands) ReleaseReservation(ctx context.Context, productID, storeID, reservationID uuid.UUID, reason string) (*Result, error) {
	inv, err := c.load(ctx, productID, storeID)
	if err != nil {
		return nil, err
	}

	if err := inv.Release(reservationID, reason); err != nil {
		return nil, err
	}
	if err := c.finalize(ctx, inv); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "reservation released",
		slog.String("product_id", productID.String()),
		slog.String("store_id", storeID.String()),
		slog.String("reservation_id", reservationID.String()),
		slog.String("reason", reason),
		slog.Int("version", inv.Version),
	)
	return c.result(inv), nil
}
