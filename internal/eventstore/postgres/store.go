package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/inventory-es/internal/domain"
	"github.com/utafrali/inventory-es/pkg/database"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pgUniqueViolation = "23505"

// Store persists event logs in the inventory_events table, one row per event,
// keyed by (aggregate_id, version). Appends serialize per aggregate with a
// transaction-scoped advisory lock and re-check the stored version inside the
// transaction; the primary key backs this up, so a lost race still surfaces
// as a concurrency conflict instead of a corrupted log.
type Store struct {
	db     database.DBTX
	logger *slog.Logger
}

// NewStore creates a postgres-backed event store.
func NewStore(db database.DBTX, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Append persists events under optimistic concurrency control.
func (s *Store) Append(ctx context.Context, aggregateID string, events []domain.Event, expectedVersion int) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("append %s: begin tx: %w", aggregateID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Serialize concurrent appenders for this aggregate; released on commit
	// or rollback.
	if _, err := tx.Exec(ctx,
		"SELECT pg_advisory_xact_lock(hashtext($1))", aggregateID); err != nil {
		return fmt.Errorf("append %s: acquire aggregate lock: %w", aggregateID, err)
	}

	var stored int
	if err := tx.QueryRow(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM inventory_events WHERE aggregate_id = $1",
		aggregateID).Scan(&stored); err != nil {
		return fmt.Errorf("append %s: read stored version: %w", aggregateID, err)
	}

	if stored != expectedVersion {
		return fmt.Errorf("append %s: expected version %d, stored %d: %w",
			aggregateID, expectedVersion, stored, domain.ErrConcurrencyConflict)
	}

	for _, e := range events {
		payload, err := domain.MarshalEvent(e)
		if err != nil {
			return fmt.Errorf("append %s: %w", aggregateID, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO inventory_events (aggregate_id, version, event_type, payload)
			VALUES ($1, $2, $3, $4)`,
			aggregateID, e.Head().Version, e.Kind(), payload,
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return fmt.Errorf("append %s: version %d already stored: %w",
					aggregateID, e.Head().Version, domain.ErrConcurrencyConflict)
			}
			return fmt.Errorf("append %s: insert event: %w", aggregateID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("append %s: commit: %w", aggregateID, err)
	}

	s.logger.DebugContext(ctx, "events appended",
		slog.String("aggregate_id", aggregateID),
		slog.Int("count", len(events)),
		slog.Int("version", expectedVersion+len(events)),
	)
	return nil
}

// Load returns every stored event with version > fromVersion, in order.
func (s *Store) Load(ctx context.Context, aggregateID string, fromVersion int) ([]domain.Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT payload FROM inventory_events
		WHERE aggregate_id = $1 AND version > $2
		ORDER BY version`,
		aggregateID, fromVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", aggregateID, err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("load %s: scan payload: %w", aggregateID, err)
		}
		e, err := domain.UnmarshalEvent(payload)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", aggregateID, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load %s: %w", aggregateID, err)
	}
	return events, nil
}

// CurrentVersion returns the highest stored version for the aggregate.
func (s *Store) CurrentVersion(ctx context.Context, aggregateID string) (int, error) {
	var version int
	err := s.db.QueryRow(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM inventory_events WHERE aggregate_id = $1",
		aggregateID).Scan(&version)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("current version %s: %w", aggregateID, err)
	}
	return version, nil
}

// ListAggregates returns the ids of all aggregates with stored events.
func (s *Store) ListAggregates(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, "SELECT DISTINCT aggregate_id FROM inventory_events")
	if err != nil {
		return nil, fmt.Errorf("list aggregates: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list aggregates: scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list aggregates: %w", err)
	}
	return ids, nil
}
