package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event kind tags. These are the event_type values persisted in the log and
// the topics under which bus subscriptions are keyed.
const (
	KindStockAdded           = "StockAdded"
	KindStockReserved        = "StockReserved"
	KindReservationCommitted = "ReservationCommitted"
	KindReservationReleased  = "ReservationReleased"
	KindStockAdjusted        = "StockAdjusted"
)

// EventKinds returns all event kind tags.
func EventKinds() []string {
	return []string{
		KindStockAdded,
		KindStockReserved,
		KindReservationCommitted,
		KindReservationReleased,
		KindStockAdjusted,
	}
}

// Header carries the fields common to every persisted event record.
type Header struct {
	EventType   string    `json:"event_type"`
	EventID     uuid.UUID `json:"event_id"`
	AggregateID string    `json:"aggregate_id"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

// Head returns the header itself, satisfying the Event interface for any
// struct that embeds Header.
func (h Header) Head() Header {
	return h
}

// Kind returns the event_type tag.
func (h Header) Kind() string {
	return h.EventType
}

// Event is an immutable record of a past fact, stamped with a monotonically
// increasing per-aggregate version.
type Event interface {
	Head() Header
	Kind() string
}

func newHeader(kind, aggregateID string, version int) Header {
	return Header{
		EventType:   kind,
		EventID:     uuid.New(),
		AggregateID: aggregateID,
		Timestamp:   time.Now().UTC(),
		Version:     version,
	}
}

// StockAdded records stock being added to an aggregate.
type StockAdded struct {
	Header
	ProductID uuid.UUID `json:"product_id"`
	StoreID   uuid.UUID `json:"store_id"`
	Quantity  int       `json:"quantity"`
	Reason    string    `json:"reason"`
}

// StockReserved records a hold moving quantity from available to reserved.
// ExpiresAt is carried in the payload so replay can reconstruct the
// reservations map faithfully, including expiry.
type StockReserved struct {
	Header
	ProductID     uuid.UUID  `json:"product_id"`
	StoreID       uuid.UUID  `json:"store_id"`
	ReservationID uuid.UUID  `json:"reservation_id"`
	CustomerID    uuid.UUID  `json:"customer_id"`
	Quantity      int        `json:"quantity"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// ReservationCommitted records a reservation converted into a sale; total
// stock decreases by the reserved quantity.
type ReservationCommitted struct {
	Header
	ProductID     uuid.UUID `json:"product_id"`
	StoreID       uuid.UUID `json:"store_id"`
	ReservationID uuid.UUID `json:"reservation_id"`
	OrderID       uuid.UUID `json:"order_id"`
	Quantity      int       `json:"quantity"`
}

// ReservationReleased records a reservation returned to available stock.
type ReservationReleased struct {
	Header
	ProductID     uuid.UUID `json:"product_id"`
	StoreID       uuid.UUID `json:"store_id"`
	ReservationID uuid.UUID `json:"reservation_id"`
	Reason        string    `json:"reason"`
	Quantity      int       `json:"quantity"`
}

// StockAdjusted records a manual correction of the available quantity.
// Reserved stock is untouched.
type StockAdjusted struct {
	Header
	ProductID   uuid.UUID `json:"product_id"`
	StoreID     uuid.UUID `json:"store_id"`
	OldQuantity int       `json:"old_quantity"`
	NewQuantity int       `json:"new_quantity"`
	Reason      string    `json:"reason"`
}

// MarshalEvent serializes an event to its persisted JSON record.
func MarshalEvent(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Kind(), err)
	}
	return data, nil
}

// UnmarshalEvent deserializes a persisted JSON record into the concrete event
// variant named by its event_type tag.
func UnmarshalEvent(data []byte) (Event, error) {
	var probe struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("probe event type: %w", err)
	}

	switch probe.EventType {
	case KindStockAdded:
		var e StockAdded
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s event: %w", probe.EventType, err)
		}
		return e, nil
	case KindStockReserved:
		var e StockReserved
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s event: %w", probe.EventType, err)
		}
		return e, nil
	case KindReservationCommitted:
		var e ReservationCommitted
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s event: %w", probe.EventType, err)
		}
		return e, nil
	case KindReservationReleased:
		var e ReservationReleased
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s event: %w", probe.EventType, err)
		}
		return e, nil
	case KindStockAdjusted:
		var e StockAdjusted
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s event: %w", probe.EventType, err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", probe.EventType)
	}
}
