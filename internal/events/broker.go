package events

import (
	"context"
	"sync"
)

// Broker fans events out to in-process subscribers, keyed by draft id.
// Slow subscribers miss events rather than block the publisher.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Broker) Subscribe(draftID string) chan Event {
	ch := make(chan Event, 8)
	b.mu.Lock()
	if b.subs[draftID] == nil {
		b.subs[draftID] = map[chan Event]struct{}{}
	}
	b.subs[draftID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(draftID string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[draftID]
	if m == nil {
		return
	}
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, draftID)
	}
	close(ch)
}

func (b *Broker) Publish(_ context.Context, evt Event) {
	b.mu.Lock()
	for ch := range b.subs[evt.DraftID] {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}

// Subscribers reports how many channels follow draftID.
func (b *Broker) Subscribers(draftID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[draftID])
}
