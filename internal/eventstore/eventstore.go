package eventstore

import (
	"context"

	"github.com/utafrali/inventory-es/internal/domain"
)

// Store is the append-only event log with per-aggregate optimistic
// concurrency.
//
// Append is atomic per call: it compares the stored version against
// expectedVersion and fails with domain.ErrConcurrencyConflict on mismatch,
// otherwise persists the events in order. A crash mid-append must never leave
// a partially written tail visible to Load.
type Store interface {
	// Append persists events for the aggregate. The events' versions must be
	// expectedVersion+1 .. expectedVersion+len(events); the store trusts the
	// caller's stamping.
	Append(ctx context.Context, aggregateID string, events []domain.Event, expectedVersion int) error

	// Load returns every stored event with version > fromVersion, in order.
	// An unknown aggregate yields an empty slice.
	Load(ctx context.Context, aggregateID string, fromVersion int) ([]domain.Event, error)

	// CurrentVersion returns the number of events stored for the aggregate.
	CurrentVersion(ctx context.Context, aggregateID string) (int, error)

	// ListAggregates returns the ids of all aggregates with at least one
	// stored event. Used by the projection rebuild path.
	ListAggregates(ctx context.Context) ([]string, error)
}
