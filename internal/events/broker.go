// Package events fans session state changes out to SSE subscribers.
package events

import (
	"sync"
	"time"
)

// Event describes a state change of one workspace session.
type Event struct {
	SessionID string    `json:"session_id"`
	State     string    `json:"state"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Subscription receives events for one session, or all sessions when SessionID is empty.
type Subscription struct {
	SessionID string
	C         chan Event
}

// Broker manages SSE subscribers.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[*Subscription]struct{}
}

// NewBroker constructs a broker instance.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a buffered subscription filtered by sessionID.
func (b *Broker) Subscribe(sessionID string) *Subscription {
	sub := &Subscription{SessionID: sessionID, C: make(chan Event, 8)}
	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes the subscription and closes its channel. Calling it
// twice is safe.
func (b *Broker) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	close(sub.C)
}

// Publish fans the event out to matching subscribers, dropping it for
// subscribers whose buffer is full.
func (b *Broker) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subscribers {
		if sub.SessionID != "" && sub.SessionID != evt.SessionID {
			continue
		}
		select {
		case sub.C <- evt:
		default:
		}
	}
}

// Subscribers reports the number of active subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
