package query

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/inventory-es/internal/cache"
	"github.com/utafrali/inventory-es/internal/readmodel"
)

// StockKey is the cache key for one (product, store) stock record.
func StockKey(productID, storeID uuid.UUID) string {
	return "stock:" + productID.String() + ":" + storeID.String()
}

// ProductKey is the cache key for a product's per-store inventory list.
func ProductKey(productID uuid.UUID) string {
	return "product_inventory:" + productID.String()
}

// Queries is the read side: cache-aside lookups over the denormalized read
// model. Cache failures degrade to a read-model hit, never to a query error.
type Queries struct {
	readModel readmodel.Repository
	cache     cache.Cache
	ttl       time.Duration
	logger    *slog.Logger
}

// NewQueries wires the read side. A non-positive ttl falls back to the
// cache's default.
func NewQueries(rm readmodel.Repository, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Queries {
	return &Queries{readModel: rm, cache: c, ttl: ttl, logger: logger}
}

// cacheGet loads and decodes a cached value into dst, reporting a miss on any
// cache failure.
func (q *Queries) cacheGet(ctx context.Context, key string, dst any) bool {
	data, ok, err := q.cache.Get(ctx, key)
	if err != nil {
		q.logger.WarnContext(ctx, "cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		q.logger.WarnContext(ctx, "cache entry corrupt",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// cacheSet stores a value best effort.
func (q *Queries) cacheSet(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		q.logger.WarnContext(ctx, "cache encode failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := q.cache.Set(ctx, key, data, q.ttl); err != nil {
		q.logger.WarnContext(ctx, "cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
