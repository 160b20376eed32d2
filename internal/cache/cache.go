package cache

import (
	"context"
	"time"
)

// Cache is the read-side cache. Get reports a miss with ok=false rather than
// an error; expired entries are treated as misses.
type Cache interface {
	// Get returns the value stored under key, or ok=false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key. A non-positive ttl falls back to the
	// backend's default TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// InvalidatePattern removes every key matching the regular expression
	// and returns how many were removed.
	InvalidatePattern(ctx context.Context, pattern string) (int, error)

	// Clear removes all entries.
	Clear(ctx context.Context) error
}
