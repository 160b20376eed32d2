package readmodel

import (
	"context"

	"github.com/google/uuid"
)

// Record is the denormalized view of one (product, store) pair.
type Record struct {
	ProductID string `json:"product_id"`
	StoreID   string `json:"store_id"`
	Available int    `json:"available"`
	Reserved  int    `json:"reserved"`
	Total     int    `json:"total"`
}

// Repository is the durable projection updated by command handlers after each
// successful event-store append. Updates are full overwrites; there are no
// deltas.
type Repository interface {
	// Update overwrites the record for the pair. Total is derived.
	Update(ctx context.Context, productID, storeID uuid.UUID, available, reserved int) error

	// Get returns the record for the pair, or pkg/errors.ErrNotFound.
	Get(ctx context.Context, productID, storeID uuid.UUID) (*Record, error)

	// GetByProduct returns all records for the product across stores.
	GetByProduct(ctx context.Context, productID uuid.UUID) ([]Record, error)

	// Check reports whether at least required units are available. A missing
	// record reports false.
	Check(ctx context.Context, productID, storeID uuid.UUID, required int) (bool, error)
}
