// Package events carries draft lifecycle notifications to stream
// subscribers and downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the draft engine.
const (
	DraftCreated       = "draft.created"
	DraftPointsChanged = "draft.points_changed"
	DraftBuildStarted  = "draft.build_started"
	DraftBuilt         = "draft.built"
	DraftFailed        = "draft.failed"
	DraftReset         = "draft.reset"
	RouteSaved         = "route.saved"
)

// Event is a single notification about one draft.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	DraftID    string         `json:"draftId"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// New stamps an event with a fresh id and the current time.
func New(typ, draftID string, data map[string]any) Event {
	return Event{ID: uuid.NewString(), Type: typ, DraftID: draftID, Data: data, OccurredAt: time.Now().UTC()}
}

// Publisher delivers events. Delivery is best effort and never blocks the caller
// for long.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// Stream lets a client follow one draft.
type Stream interface {
	Subscribe(draftID string) chan Event
	Unsubscribe(draftID string, ch chan Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Fanout publishes to every publisher in order.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, evt Event) {
	for _, p := range f {
		if p != nil {
			p.Publish(ctx, evt)
		}
	}
}

// CloudEvent is the envelope written to Kafka.
type CloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	Type            string          `json:"type"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data,omitempty"`
}

// NewCloudEvent wraps evt for the given source.
func NewCloudEvent(source string, evt Event) (CloudEvent, error) {
	data, err := json.Marshal(evt.Data)
	if err != nil {
		return CloudEvent{}, err
	}
	return CloudEvent{
		SpecVersion:     "1.0",
		ID:              evt.ID,
		Source:          source,
		Type:            evt.Type,
		Subject:         evt.DraftID,
		Time:            evt.OccurredAt,
		DataContentType: "application/json",
		Data:            data,
	}, nil
}
