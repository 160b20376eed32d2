package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AggregateKey builds the event-log aggregate id for a (product, store) pair.
// Canonical UUID encoding cannot contain ':', so the delimiter is unambiguous.
func AggregateKey(productID, storeID uuid.UUID) string {
	return productID.String() + ":" + storeID.String()
}

// Reservation is a temporary hold on stock, created by Reserve and removed by
// Commit or Release. Expiration is observable but not enforced: an expired
// reservation still commits and must be released explicitly.
type Reservation struct {
	ID         uuid.UUID
	Quantity   Quantity
	CustomerID uuid.UUID
	CreatedAt  time.Time
	ExpiresAt  *time.Time
}

// Expired reports whether the reservation has passed its expiry instant.
func (r Reservation) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// Inventory is the event-sourced aggregate for one (product, store) pair.
// All methods are synchronous and in-memory; persistence happens when the
// command pipeline drains pending events into the event store.
type Inventory struct {
	ProductID    uuid.UUID
	StoreID      uuid.UUID
	Available    Quantity
	Reserved     Quantity
	Version      int
	Reservations map[uuid.UUID]Reservation

	pending []Event
}

// NewInventory creates an empty aggregate at version 0.
func NewInventory(productID, storeID uuid.UUID) *Inventory {
	return &Inventory{
		ProductID:    productID,
		StoreID:      storeID,
		Reservations: make(map[uuid.UUID]Reservation),
	}
}

// AggregateID returns the event-log key for this aggregate.
func (inv *Inventory) AggregateID() string {
	return AggregateKey(inv.ProductID, inv.StoreID)
}

// Total returns available + reserved.
func (inv *Inventory) Total() int {
	return inv.Available.Value() + inv.Reserved.Value()
}

// AddStock increases available stock. The quantity must be positive.
func (inv *Inventory) AddStock(quantity int, reason string) error {
	if quantity <= 0 {
		return fmt.Errorf("add stock: quantity must be positive, got %d: %w", quantity, ErrInvalidQuantity)
	}

	inv.Available = inv.Available.Add(Quantity(quantity))
	inv.Version++

	inv.pending = append(inv.pending, StockAdded{
		Header:    newHeader(KindStockAdded, inv.AggregateID(), inv.Version),
		ProductID: inv.ProductID,
		StoreID:   inv.StoreID,
		Quantity:  quantity,
		Reason:    reason,
	})
	return nil
}

// Reserve moves quantity from available to reserved under a fresh reservation
// id. Fails with ErrInsufficientStock when the requested quantity exceeds
// available.
func (inv *Inventory) Reserve(quantity int, customerID uuid.UUID, expiresAt *time.Time) (uuid.UUID, error) {
	if quantity <= 0 {
		return uuid.Nil, fmt.Errorf("reserve: quantity must be positive, got %d: %w", quantity, ErrInvalidQuantity)
	}
	if Quantity(quantity) > inv.Available {
		return uuid.Nil, fmt.Errorf("reserve: requested %d, available %d: %w",
			quantity, inv.Available.Value(), ErrInsufficientStock)
	}

	reservationID := uuid.New()
	inv.Reservations[reservationID] = Reservation{
		ID:         reservationID,
		Quantity:   Quantity(quantity),
		CustomerID: customerID,
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  expiresAt,
	}
	inv.Available -= Quantity(quantity)
	inv.Reserved += Quantity(quantity)
	inv.Version++

	inv.pending = append(inv.pending, StockReserved{
		Header:        newHeader(KindStockReserved, inv.AggregateID(), inv.Version),
		ProductID:     inv.ProductID,
		StoreID:       inv.StoreID,
		ReservationID: reservationID,
		CustomerID:    customerID,
		Quantity:      quantity,
		ExpiresAt:     expiresAt,
	})
	return reservationID, nil
}

// Commit converts a reservation into a sale: the reserved quantity leaves the
// aggregate entirely. Commit succeeds regardless of reservation expiration.
func (inv *Inventory) Commit(reservationID, orderID uuid.UUID) error {
	r, ok := inv.Reservations[reservationID]
	if !ok {
		return fmt.Errorf("commit: reservation %s: %w", reservationID, ErrReservationNotFound)
	}

	delete(inv.Reservations, reservationID)
	inv.Reserved -= r.Quantity
	inv.Version++

	inv.pending = append(inv.pending, ReservationCommitted{
		Header:        newHeader(KindReservationCommitted, inv.AggregateID(), inv.Version),
		ProductID:     inv.ProductID,
		StoreID:       inv.StoreID,
		ReservationID: reservationID,
		OrderID:       orderID,
		Quantity:      r.Quantity.Value(),
	})
	return nil
}

// Release cancels a reservation, returning its quantity to available stock.
func (inv *Inventory) Release(reservationID uuid.UUID, reason string) error {
	r, ok := inv.Reservations[reservationID]
	if !ok {
		return fmt.Errorf("release: reservation %s: %w", reservationID, ErrReservationNotFound)
	}

	delete(inv.Reservations, reservationID)
	inv.Available += r.Quantity
	inv.Reserved -= r.Quantity
	inv.Version++

	inv.pending = append(inv.pending, ReservationReleased{
		Header:        newHeader(KindReservationReleased, inv.AggregateID(), inv.Version),
		ProductID:     inv.ProductID,
		StoreID:       inv.StoreID,
		ReservationID: reservationID,
		Reason:        reason,
		Quantity:      r.Quantity.Value(),
	})
	return nil
}

// Adjust sets the available quantity to an absolute value. Reserved stock is
// untouched.
func (inv *Inventory) Adjust(newQuantity int, reason string) error {
	q, err := NewQuantity(newQuantity)
	if err != nil {
		return fmt.Errorf("adjust: %w", err)
	}

	old := inv.Available.Value()
	inv.Available = q
	inv.Version++

	inv.pending = append(inv.pending, StockAdjusted{
		Header:      newHeader(KindStockAdjusted, inv.AggregateID(), inv.Version),
		ProductID:   inv.ProductID,
		StoreID:     inv.StoreID,
		OldQuantity: old,
		NewQuantity: newQuantity,
		Reason:      reason,
	})
	return nil
}

// ClearPending returns the emitted events and empties the pending list.
// Idempotent thereafter.
func (inv *Inventory) ClearPending() []Event {
	events := inv.pending
	inv.pending = nil
	return events
}

// PendingCount returns the number of emitted events not yet drained.
func (inv *Inventory) PendingCount() int {
	return len(inv.pending)
}

// Replay rebuilds an aggregate from its ordered event log. The returned
// aggregate has an empty pending list; its version equals the last event's
// version. A log that cannot be applied (underflow, unknown variant) indicates
// corruption and fails the rebuild.
func Replay(productID, storeID uuid.UUID, events []Event) (*Inventory, error) {
	inv := NewInventory(productID, storeID)

	for _, e := range events {
		if err := inv.apply(e); err != nil {
			return nil, fmt.Errorf("replay %s at version %d: %w", e.Kind(), e.Head().Version, err)
		}
		inv.Version = e.Head().Version
	}
	return inv, nil
}

func (inv *Inventory) apply(e Event) error {
	switch ev := e.(type) {
	case StockAdded:
		inv.Available = inv.Available.Add(Quantity(ev.Quantity))

	case StockReserved:
		available, err := inv.Available.Subtract(Quantity(ev.Quantity))
		if err != nil {
			return err
		}
		inv.Available = available
		inv.Reserved = inv.Reserved.Add(Quantity(ev.Quantity))
		inv.Reservations[ev.ReservationID] = Reservation{
			ID:         ev.ReservationID,
			Quantity:   Quantity(ev.Quantity),
			CustomerID: ev.CustomerID,
			CreatedAt:  ev.Timestamp,
			ExpiresAt:  ev.ExpiresAt,
		}

	case ReservationCommitted:
		reserved, err := inv.Reserved.Subtract(Quantity(ev.Quantity))
		if err != nil {
			return err
		}
		inv.Reserved = reserved
		delete(inv.Reservations, ev.ReservationID)

	case ReservationReleased:
		reserved, err := inv.Reserved.Subtract(Quantity(ev.Quantity))
		if err != nil {
			return err
		}
		inv.Reserved = reserved
		inv.Available = inv.Available.Add(Quantity(ev.Quantity))
		delete(inv.Reservations, ev.ReservationID)

	case StockAdjusted:
		q, err := NewQuantity(ev.NewQuantity)
		if err != nil {
			return err
		}
		inv.Available = q

	default:
		return fmt.Errorf("unknown event variant %T", e)
	}
	return nil
}
