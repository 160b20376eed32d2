package file

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/inventory-es/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir(), newTestLogger())
	require.NoError(t, err)
	return store
}

// drainEvents runs commands against a fresh aggregate and returns its pending
// events plus the aggregate id.
func stockAddedEvents(t *testing.T, quantity int) (string, []domain.Event) {
	t.Helper()
	inv := domain.NewInventory(uuid.New(), uuid.New())
	require.NoError(t, inv.AddStock(quantity, "restock"))
	return inv.AggregateID(), inv.ClearPending()
}

func TestStore_AppendAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	aggID, events := stockAddedEvents(t, 100)
	require.NoError(t, store.Append(ctx, aggID, events, 0))

	loaded, err := store.Load(ctx, aggID, 0)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	added, ok := loaded[0].(domain.StockAdded)
	require.True(t, ok)
	assert.Equal(t, 100, added.Quantity)
	assert.Equal(t, 1, added.Version)
	assert.Equal(t, aggID, added.AggregateID)
}

func TestStore_Load_UnknownAggregate(t *testing.T) {
	store := newTestStore(t)

	events, err := store.Load(context.Background(), "a:b", 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStore_Load_FromVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inv := domain.NewInventory(uuid.New(), uuid.New())
	require.NoError(t, inv.AddStock(100, "restock"))
	require.NoError(t, inv.AddStock(50, "restock"))
	require.NoError(t, inv.AddStock(25, "restock"))
	require.NoError(t, store.Append(ctx, inv.AggregateID(), inv.ClearPending(), 0))

	tail, err := store.Load(ctx, inv.AggregateID(), 2)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, 3, tail[0].Head().Version)
}

func TestStore_Append_VersionConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	aggID, events := stockAddedEvents(t, 100)
	require.NoError(t, store.Append(ctx, aggID, events, 0))

	// A second writer that loaded before the first append sees a stale
	// expected version.
	_, stale := stockAddedEvents(t, 10)
	err := store.Append(ctx, aggID, stale, 0)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
}

func TestStore_CurrentVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	aggID := domain.AggregateKey(uuid.New(), uuid.New())
	version, err := store.CurrentVersion(ctx, aggID)
	require.NoError(t, err)
	assert.Equal(t, 0, version)

	inv := domain.NewInventory(uuid.New(), uuid.New())
	require.NoError(t, inv.AddStock(100, "restock"))
	require.NoError(t, inv.AddStock(1, "restock"))
	require.NoError(t, store.Append(ctx, inv.AggregateID(), inv.ClearPending(), 0))

	version, err = store.CurrentVersion(ctx, inv.AggregateID())
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestStore_ListAggregates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, firstEvents := stockAddedEvents(t, 10)
	second, secondEvents := stockAddedEvents(t, 20)
	require.NoError(t, store.Append(ctx, first, firstEvents, 0))
	require.NoError(t, store.Append(ctx, second, secondEvents, 0))

	ids, err := store.ListAggregates(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first, second}, ids)
}

func TestStore_PersistedRecordFormat(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, newTestLogger())
	require.NoError(t, err)
	ctx := context.Background()

	aggID, events := stockAddedEvents(t, 100)
	require.NoError(t, store.Append(ctx, aggID, events, 0))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 1)
	record := records[0]

	assert.Equal(t, "StockAdded", record["event_type"])
	assert.Equal(t, aggID, record["aggregate_id"])
	assert.Equal(t, float64(1), record["version"])
	assert.NotEmpty(t, record["event_id"])

	_, err = time.Parse(time.RFC3339Nano, record["timestamp"].(string))
	assert.NoError(t, err)
}

// Concurrent appenders against one aggregate: the per-aggregate mutex plus
// the version check must yield a contiguous 1..K log with no duplicates.
func TestStore_ConcurrentAppends_ContiguousVersions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	productID := uuid.New()
	storeID := uuid.New()
	aggID := domain.AggregateKey(productID, storeID)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Retry on conflict the way the service facade does.
			for {
				events, err := store.Load(ctx, aggID, 0)
				require.NoError(t, err)

				inv, err := domain.Replay(productID, storeID, events)
				require.NoError(t, err)
				require.NoError(t, inv.AddStock(1, "restock"))

				pending := inv.ClearPending()
				err = store.Append(ctx, aggID, pending, inv.Version-len(pending))
				if err == nil {
					return
				}
				require.ErrorIs(t, err, domain.ErrConcurrencyConflict)
			}
		}()
	}
	wg.Wait()

	events, err := store.Load(ctx, aggID, 0)
	require.NoError(t, err)
	require.Len(t, events, writers)
	for i, e := range events {
		assert.Equal(t, i+1, e.Head().Version)
	}
}
