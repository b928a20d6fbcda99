package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_SetsKeyAndHeader(t *testing.T) {
	ev := OrderEvent{
		Type:        OrderCreated,
		OrderID:     "o-1",
		OrderNumber: "ORD-1",
		UserID:      "u-1",
		Total:       18900,
		OccurredAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	msg, err := Message(ev.OrderID, ev.Type, ev)
	require.NoError(t, err)
	assert.Equal(t, "o-1", string(msg.Key))
	assert.Equal(t, OrderCreated, Type(msg))

	var decoded OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev, decoded)
	assert.Contains(t, string(msg.Value), `"total":189.00`)
}

func TestType_MissingHeader(t *testing.T) {
	assert.Empty(t, Type(kafka.Message{Value: []byte("{}")}))
}
