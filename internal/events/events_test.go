package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitsnap/internal/money"
)

func sampleEvent() Event {
	return Event{
		Type:       SettlementRecorded,
		GroupID:    "g1",
		SubjectID:  "s1",
		Balances:   map[string]money.Cents{"X": 0, "Y": 0},
		OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestEventJSON(t *testing.T) {
	e := sampleEvent()
	body, err := e.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"type":"settlement.recorded"`)
	assert.Contains(t, string(body), `"balances":{"X":0,"Y":0}`)

	back, err := EventFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, e, *back)

	_, err = EventFromJSON([]byte("{"))
	assert.Error(t, err)
}

func TestPublishing(t *testing.T) {
	e := sampleEvent()
	msg := publishing(e, []byte("{}"))
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp091.Persistent, msg.DeliveryMode)
	assert.Equal(t, "settlement.recorded", msg.Type)
	assert.Equal(t, "g1", msg.Headers["group_id"])
	assert.Equal(t, e.OccurredAt, msg.Timestamp)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Publish(context.Background(), sampleEvent()))
	assert.Len(t, r.Events(), 1)

	r.Err = errors.New("broker down")
	assert.Error(t, r.Publish(context.Background(), sampleEvent()))
	assert.Len(t, r.Events(), 1)
}
