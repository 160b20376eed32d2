package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/utafrali/inventory-es/internal/domain"
)

// Store is a file-backed event log: one JSON array of event records per
// aggregate. Appends hold a per-aggregate mutex across the read-check-write
// cycle and replace the file atomically (write temp, fsync, rename), so a
// crash mid-append leaves either the old log or the new log, never a prefix.
type Store struct {
	dir    string
	logger *slog.Logger

	mu    sync.Mutex // guards locks
	locks map[string]*sync.Mutex
}

// New creates a file store rooted at dir, creating the directory if needed.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create event store dir: %w", err)
	}
	return &Store{
		dir:    dir,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// lockFor returns the mutex serializing writes for one aggregate.
func (s *Store) lockFor(aggregateID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[aggregateID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[aggregateID] = l
	}
	return l
}

// path maps an aggregate id to its log file. ':' is not a valid filename
// character everywhere, so it is replaced with '_'; UUIDs contain neither.
func (s *Store) path(aggregateID string) string {
	return filepath.Join(s.dir, strings.ReplaceAll(aggregateID, ":", "_")+".json")
}

// Append persists events under optimistic concurrency control.
func (s *Store) Append(ctx context.Context, aggregateID string, events []domain.Event, expectedVersion int) error {
	if len(events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.lockFor(aggregateID)
	lock.Lock()
	defer lock.Unlock()

	records, err := s.readRecords(aggregateID)
	if err != nil {
		return err
	}

	if len(records) != expectedVersion {
		return fmt.Errorf("append %s: expected version %d, stored %d: %w",
			aggregateID, expectedVersion, len(records), domain.ErrConcurrencyConflict)
	}

	for _, e := range events {
		data, err := domain.MarshalEvent(e)
		if err != nil {
			return fmt.Errorf("append %s: %w", aggregateID, err)
		}
		records = append(records, data)
	}

	if err := s.writeRecords(aggregateID, records); err != nil {
		return fmt.Errorf("append %s: %w", aggregateID, err)
	}

	s.logger.DebugContext(ctx, "events appended",
		slog.String("aggregate_id", aggregateID),
		slog.Int("count", len(events)),
		slog.Int("version", len(records)),
	)
	return nil
}

// Load returns every stored event with version > fromVersion.
func (s *Store) Load(ctx context.Context, aggregateID string, fromVersion int) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := s.readRecords(aggregateID)
	if err != nil {
		return nil, err
	}

	events := make([]domain.Event, 0, len(records))
	for _, record := range records {
		e, err := domain.UnmarshalEvent(record)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", aggregateID, err)
		}
		if e.Head().Version > fromVersion {
			events = append(events, e)
		}
	}
	return events, nil
}

// CurrentVersion returns the number of stored events for the aggregate.
func (s *Store) CurrentVersion(ctx context.Context, aggregateID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	records, err := s.readRecords(aggregateID)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// ListAggregates returns the ids of all aggregates with a log file.
func (s *Store) ListAggregates(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list aggregates: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.ReplaceAll(strings.TrimSuffix(name, ".json"), "_", ":"))
	}
	return ids, nil
}

func (s *Store) readRecords(aggregateID string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(s.path(aggregateID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read event log %s: %w", aggregateID, err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode event log %s: %w", aggregateID, err)
	}
	return records, nil
}

// writeRecords replaces the aggregate's log file atomically.
func (s *Store) writeRecords(aggregateID string, records []json.RawMessage) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode event log: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".events-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp log: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp log: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp log: %w", err)
	}

	if err := os.Rename(tmpName, s.path(aggregateID)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("swap event log: %w", err)
	}
	return nil
}
