package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ReserveStock places a hold on available stock and returns the reservation
// id. A positive ttl stamps an expiry on the reservation; expiry is
// informational and never enforced server-side.
func (c *Commands) ReserveStock(ctx context.Context, productID, storeID, customerID uuid.UUID, quantity int, ttl time.Duration) (*Result, error) {
	inv, err := c.load(ctx, productID, storeID)
	if err != nil {
		return nil, err
	}

	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().UTC().Add(ttl)
		expiresAt = &t
	}

	reservationID, err := inv.Reserve(quantity, customerID, expiresAt)
	if err != nil {
		return nil, err
	}
	if err := c.finalize(ctx, inv); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "stock reserved",
		slog.String("product_id", productID.String()),
		slog.String("store_id", storeID.String()),
		slog.String("reservation_id", reservationID.String()),
		slog.Int("quantity", quantity),
		slog.Int("version", inv.Version),
	)

	result := c.result(inv)
	result.ReservationID = reservationID
	return result, nil
}
