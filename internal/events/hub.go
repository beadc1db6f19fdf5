package events

import (
	"slices"
	"sync"
	"time"
)

const (
	TypeReady        = "events.ready"
	TypeAlertCreated = "alert.created"
	TypeAlertUpdated = "alert.updated"
)

type Event struct {
	EventID   int64          `json:"eventId"`
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

func NewEvent(eventType string, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	}
}

// subscriber receives every event whose type is in types, or all events
// when types is empty.
type subscriber struct {
	ch    chan Event
	types []string
}

func (s subscriber) wants(eventType string) bool {
	return len(s.types) == 0 || slices.Contains(s.types, eventType)
}

// Hub fans events out to subscribers without blocking the publisher. A
// subscriber whose buffer is full misses the event.
type Hub struct {
	mu          sync.Mutex
	lastSubID   int64
	lastEventID int64
	subs        map[int64]subscriber
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int64]subscriber)}
}

// Subscribe registers a channel with room for buffer events, limited to the
// given event types. The returned func unsubscribes and closes the channel;
// calling it again is a no-op.
func (h *Hub) Subscribe(buffer int, types ...string) (<-chan Event, func()) {
	if h == nil {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}
	if buffer <= 0 {
		buffer = 16
	}
	sub := subscriber{ch: make(chan Event, buffer), types: slices.Clone(types)}

	h.mu.Lock()
	h.lastSubID++
	id := h.lastSubID
	h.subs[id] = sub
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Subscribers reports how many subscriptions are open.
func (h *Hub) Subscribers() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish stamps event with the next id, and a timestamp when it has none,
// then offers it to every interested subscriber.
func (h *Hub) Publish(event Event) {
	if h == nil {
		return
	}
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastEventID++
	event.EventID = h.lastEventID
	for _, sub := range h.subs {
		if !sub.wants(event.Type) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
}
