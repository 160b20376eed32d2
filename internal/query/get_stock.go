package query

import (
	"context"

	"github.com/google/uuid"

	"github.com/utafrali/inventory-es/internal/readmodel"
)

// GetStock returns the stock record for one (product, store) pair, consulting
// the cache first.
func (q *Queries) GetStock(ctx context.Context, productID, storeID uuid.UUID) (*readmodel.Record, error) {
	key := StockKey(productID, storeID)

	var cached readmodel.Record
	if q.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	record, err := q.readModel.Get(ctx, productID, storeID)
	if err != nil {
		return nil, err
	}

	q.cacheSet(ctx, key, record)
	return record, nil
}
