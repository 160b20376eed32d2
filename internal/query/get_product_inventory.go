package query

import (
	"context"

	"github.com/google/uuid"

	"github.com/utafrali/inventory-es/internal/readmodel"
)

// GetProductInventory returns the product's stock records across all stores,
// consulting the cache first. An unknown product yields an empty slice.
func (q *Queries) GetProductInventory(ctx context.Context, productID uuid.UUID) ([]readmodel.Record, error) {
	key := ProductKey(productID)

	var cached []readmodel.Record
	if q.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	records, err := q.readModel.GetByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if len(records) > 0 {
		q.cacheSet(ctx, key, records)
	}
	return records, nil
}
