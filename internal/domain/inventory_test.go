package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInventory(t *testing.T) *Inventory {
	t.Helper()
	return NewInventory(uuid.New(), uuid.New())
}

// ---------------------------------------------------------------------------
// AddStock
// ---------------------------------------------------------------------------

func TestInventory_AddStock(t *testing.T) {
	inv := newTestInventory(t)

	require.NoError(t, inv.AddStock(100, "restock"))

	assert.Equal(t, 100, inv.Available.Value())
	assert.Equal(t, 0, inv.Reserved.Value())
	assert.Equal(t, 1, inv.Version)

	events := inv.ClearPending()
	require.Len(t, events, 1)
	added, ok := events[0].(StockAdded)
	require.True(t, ok)
	assert.Equal(t, KindStockAdded, added.Kind())
	assert.Equal(t, 100, added.Quantity)
	assert.Equal(t, "restock", added.Reason)
	assert.Equal(t, 1, added.Version)
	assert.Equal(t, inv.AggregateID(), added.AggregateID)
}

func TestInventory_AddStock_RejectsZeroAndNegative(t *testing.T) {
	inv := newTestInventory(t)

	assert.ErrorIs(t, inv.AddStock(0, "noop"), ErrInvalidQuantity)
	assert.ErrorIs(t, inv.AddStock(-5, "negative"), ErrInvalidQuantity)
	assert.Equal(t, 0, inv.Version)
	assert.Empty(t, inv.ClearPending())
}

// ---------------------------------------------------------------------------
// Reserve
// ---------------------------------------------------------------------------

func TestInventory_Reserve(t *testing.T) {
	inv := newTestInventory(t)
	require.NoError(t, inv.AddStock(100, "restock"))

	customerID := uuid.New()
	expiresAt := time.Now().UTC().Add(30 * time.Minute)

	rid, err := inv.Reserve(10, customerID, &expiresAt)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, rid)

	assert.Equal(t, 90, inv.Available.Value())
	assert.Equal(t, 10, inv.Reserved.Value())
	assert.Equal(t, 100, inv.Total())
	assert.Equal(t, 2, inv.Version)

	r, ok := inv.Reservations[rid]
	require.True(t, ok)
	assert.Equal(t, Quantity(10), r.Quantity)
	assert.Equal(t, customerID, r.CustomerID)
	require.NotNil(t, r.ExpiresAt)
	assert.Equal(t, expiresAt, *r.ExpiresAt)

	events := inv.ClearPending()
	require.Len(t, events, 2)
	reserved, ok := events[1].(StockReserved)
	require.True(t, ok)
	assert.Equal(t, rid, reserved.ReservationID)
	assert.Equal(t, 10, reserved.Quantity)
	require.NotNil(t, reserved.ExpiresAt)
}

func TestInventory_Reserve_InsufficientStock(t *testing.T) {
	inv := newTestInventory(t)
	require.NoError(t, inv.AddStock(5, "restock"))

	_, err := inv.Reserve(10, uuid.New(), nil)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 5, inv.Available.Value())
	assert.Equal(t, 1, inv.Version)
}

func TestInventory_Reserve_InvalidQuantity(t *testing.T) {
	inv := newTestInventory(t)
	require.NoError(t, inv.AddStock(5, "restock"))

	_, err := inv.Reserve(0, uuid.New(), nil)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

// ---------------------------------------------------------------------------
// Commit
// ---------------------------------------------------------------------------

func TestInventory_Commit(t *testing.T) {
	inv := newTestInventory(t)
	require.NoError(t, inv.AddStock(100, "restock"))
	rid, err := inv.Reserve(10, uuid.New(), nil)
	require.NoError(t, err)

	orderID := uuid.New()
	require.NoError(t, inv.Commit(rid, orderID))

	// Total stock decreases by the committed quantity.
	assert.Equal(t, 90, inv.Available.Value())
	assert.Equal(t, 0, inv.Reserved.Value())
	assert.Equal(t, 90, inv.Total())
	assert.Equal(t, 3, inv.Version)
	assert.NotContains(t, inv.Reservations, rid)

	events := inv.ClearPending()
	require.Len(t, events, 3)
	committed, ok := events[2].(ReservationCommitted)
	require.True(t, ok)
	assert.Equal(t, rid, committed.ReservationID)
	assert.Equal(t, orderID, committed.OrderID)
	assert.Equal(t, 10, committed.Quantity)
}

func TestInventory_Commit_UnknownReservation(t *testing.T) {
	inv := newTestInventory(t)
	require.NoError(t, inv.AddStock(100, "restock"))

	err := inv.Commit(uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestInventory_Commit_ExpiredReservationSucceeds(t *testing.T) {
	inv := newTestInventory(t)
	require.NoError(t, inv.AddStock(100, "restock"))

	expired := time.Now().UTC().Add(-time.Hour)
	rid, err := inv.Reserve(10, uuid.New(), &expired)
	require.NoError(t, err)
	assert.True(t, inv.Reservations[rid].Expired(time.Now().UTC()))

	// Expiration is observable but not enforced.
	assert.NoError(t, inv.Commit(rid, uuid.New()))
}

// ---------------------------------------------------------------------------
// Release
// ---------------------------------------------------------------------------

func TestInventory_Release(t *testing.T) {
	inv := newTestInventory(t)
	require.NoError(t, inv.AddStock(100, "restock"))
	rid, err := inv.Reserve(10, uuid.New(), nil)
	require.NoError(t, err)

	require.NoError(t, inv.Release(rid, "cancel"))

	// Release restores the pre-reserve state.
	assert.Equal(t, 100, inv.Available.Value())
	assert.Equal(t, 0, inv.Reserved.Value())
	assert.Equal(t, 3, inv.Version)
	assert.NotContains(t, inv.Reservations, rid)
}

func TestInventory_Release_UnknownReservation(t *testing.T) {
	inv := newTestInventory(t)

	err := inv.Release(uuid.New(), "cancel")
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

// ---------------------------------------------------------------------------
// Adjust
// ---------------------------------------------------------------------------

func TestInventory_Adjust(t *testing.T) {
	inv := newTestInventory(t)
	require.NoError(t, inv.AddStock(100, "restock"))
	_, err := inv.Reserve(10, uuid.New(), nil)
	require.NoError(t, err)

	require.NoError(t, inv.Adjust(50, "shrinkage"))

	assert.Equal(t, 50, inv.Available.Value())
	assert.Equal(t, 10, inv.Reserved.Value())
	assert.Equal(t, 3, inv.Version)

	events := inv.ClearPending()
	adjusted, ok := events[2].(StockAdjusted)
	require.True(t, ok)
	assert.Equal(t, 90, adjusted.OldQuantity)
	assert.Equal(t, 50, adjusted.NewQuantity)
}

func TestInventory_Adjust_NegativeRejected(t *testing.T) {
	inv := newTestInventory(t)
	assert.ErrorIs(t, inv.Adjust(-1, "bad"), ErrInvalidQuantity)
}

// ---------------------------------------------------------------------------
// ClearPending
// ---------------------------------------------------------------------------

func TestInventory_ClearPending_Idempotent(t *testing.T) {
	inv := newTestInventory(t)
	require.NoError(t, inv.AddStock(1, "restock"))

	first := inv.ClearPending()
	assert.Len(t, first, 1)
	assert.Empty(t, inv.ClearPending())
}

// ---------------------------------------------------------------------------
// Replay
// ---------------------------------------------------------------------------

func TestReplay_MatchesLiveAggregate(t *testing.T) {
	productID := uuid.New()
	storeID := uuid.New()
	inv := NewInventory(productID, storeID)

	expiresAt := time.Now().UTC().Add(30 * time.Minute)
	require.NoError(t, inv.AddStock(100, "restock"))
	ridCommitted, err := inv.Reserve(10, uuid.New(), &expiresAt)
	require.NoError(t, err)
	ridOpen, err := inv.Reserve(20, uuid.New(), &expiresAt)
	require.NoError(t, err)
	require.NoError(t, inv.Commit(ridCommitted, uuid.New()))
	require.NoError(t, inv.Adjust(75, "recount"))

	log := inv.ClearPending()
	rebuilt, err := Replay(productID, storeID, log)
	require.NoError(t, err)

	assert.Equal(t, inv.Available, rebuilt.Available)
	assert.Equal(t, inv.Reserved, rebuilt.Reserved)
	assert.Equal(t, inv.Version, rebuilt.Version)

	// The open reservation survives replay with its expiry intact.
	require.Contains(t, rebuilt.Reservations, ridOpen)
	r := rebuilt.Reservations[ridOpen]
	assert.Equal(t, Quantity(20), r.Quantity)
	require.NotNil(t, r.ExpiresAt)
	assert.NotContains(t, rebuilt.Reservations, ridCommitted)
}

func TestReplay_ReleaseRestoresAvailability(t *testing.T) {
	productID := uuid.New()
	storeID := uuid.New()
	inv := NewInventory(productID, storeID)

	require.NoError(t, inv.AddStock(100, "restock"))
	rid, err := inv.Reserve(40, uuid.New(), nil)
	require.NoError(t, err)
	require.NoError(t, inv.Release(rid, "cancel"))

	rebuilt, err := Replay(productID, storeID, inv.ClearPending())
	require.NoError(t, err)
	assert.Equal(t, 100, rebuilt.Available.Value())
	assert.Equal(t, 0, rebuilt.Reserved.Value())
	assert.Equal(t, 3, rebuilt.Version)
	assert.Empty(t, rebuilt.Reservations)
}

func TestReplay_CorruptLogFails(t *testing.T) {
	productID := uuid.New()
	storeID := uuid.New()

	// A reservation without any prior stock underflows available.
	events := []Event{
		StockReserved{
			Header:        newHeader(KindStockReserved, AggregateKey(productID, storeID), 1),
			ProductID:     productID,
			StoreID:       storeID,
			ReservationID: uuid.New(),
			CustomerID:    uuid.New(),
			Quantity:      5,
		},
	}

	_, err := Replay(productID, storeID, events)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}
