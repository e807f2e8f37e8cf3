// Package feed fans out message log changes to live transcript viewers.
package feed

import (
	"sync"
	"time"

	"github.com/comigor/meditranslate-go/internal/history"
)

// Event types.
const (
	EventMessage = "message"
	EventCleared = "cleared"
)

// Event is one change to the message log.
type Event struct {
	Type    string           `json:"type"`
	Message *history.Message `json:"message,omitempty"`
	At      time.Time        `json:"at"`
}

const subscriberBuffer = 16

// Hub delivers published events to every subscriber. Delivery never blocks
// the publisher: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a listener. The returned func unsubscribes and closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish sends ev to all subscribers.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// MessageAppended publishes a message event.
func (h *Hub) MessageAppended(m history.Message) {
	h.Publish(Event{Type: EventMessage, Message: &m})
}

// Cleared publishes a cleared event.
func (h *Hub) Cleared() {
	h.Publish(Event{Type: EventCleared})
}

// Subscribers reports the number of active listeners.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
