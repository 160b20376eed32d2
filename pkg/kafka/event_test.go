package kafka

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

func TestNewEvent(t *testing.T) {
	e, err := NewEvent("StockAdded", "agg-1", "inventory", "inventory-es", samplePayload{Quantity: 5, Reason: "restock"})
	require.NoError(t, err)

	assert.Equal(t, "StockAdded", e.EventType)
	assert.Equal(t, "agg-1", e.AggregateID)
	assert.Equal(t, "inventory", e.AggregateType)
	assert.Equal(t, "inventory-es", e.Source)
	assert.Equal(t, 1, e.Version)
	assert.WithinDuration(t, time.Now().UTC(), e.Timestamp, 5*time.Second)

	_, err = uuid.Parse(e.EventID)
	assert.NoError(t, err)
}

func TestEvent_Builders(t *testing.T) {
	e, err := NewEvent("StockAdded", "agg-1", "inventory", "inventory-es", samplePayload{})
	require.NoError(t, err)

	e.WithVersion(7).WithCorrelationID("corr-9")
	assert.Equal(t, 7, e.Version)
	assert.Equal(t, "corr-9", e.CorrelationID)
}

func TestEvent_MarshalRoundTrip(t *testing.T) {
	e, err := NewEvent("StockAdded", "agg-1", "inventory", "inventory-es", samplePayload{Quantity: 5, Reason: "restock"})
	require.NoError(t, err)
	e.WithVersion(3)

	data, err := e.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(data)
	require.NoError(t, err)
	assert.Equal(t, e.EventID, decoded.EventID)
	assert.Equal(t, 3, decoded.Version)

	var payload samplePayload
	require.NoError(t, decoded.UnmarshalData(&payload))
	assert.Equal(t, 5, payload.Quantity)
	assert.Equal(t, "restock", payload.Reason)
}

func TestNewEvent_UnencodablePayload(t *testing.T) {
	_, err := NewEvent("StockAdded", "agg-1", "inventory", "inventory-es", make(chan int))
	assert.Error(t, err)
}
