package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("d1")
	other := b.Subscribe("d2")

	evt := New(DraftBuilt, "d1", map[string]any{"x": 1})
	b.Publish(context.Background(), evt)

	select {
	case got := <-ch:
		assert.Equal(t, DraftBuilt, got.Type)
		assert.Equal(t, 1, got.Data["x"])
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
	select {
	case <-other:
		t.Fatal("event leaked to another draft")
	default:
	}

	b.Unsubscribe("d1", ch)
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
	assert.Equal(t, 0, b.Subscribers("d1"))

	// a second unsubscribe is a no-op
	b.Unsubscribe("d1", ch)
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("d1")
	for i := 0; i < 20; i++ {
		b.Publish(context.Background(), New(DraftPointsChanged, "d1", nil))
	}
	assert.Equal(t, cap(ch), len(ch))
}

type recorder struct{ got []Event }

func (r *recorder) Publish(_ context.Context, e Event) { r.got = append(r.got, e) }

func TestFanout(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Fanout{a, nil, b}.Publish(context.Background(), New(DraftReset, "d", nil))
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
}

func TestCloudEventEnvelope(t *testing.T) {
	evt := New(DraftBuilt, "d9", map[string]any{"distanceKm": 178.8})
	ce, err := NewCloudEvent("tripnav", evt)
	require.NoError(t, err)
	assert.Equal(t, "1.0", ce.SpecVersion)
	assert.Equal(t, "d9", ce.Subject)
	assert.Equal(t, evt.ID, ce.ID)

	var data map[string]any
	require.NoError(t, json.Unmarshal(ce.Data, &data))
	assert.Equal(t, 178.8, data["distanceKm"])
}
