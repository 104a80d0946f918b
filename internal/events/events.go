package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	// EventSyncStatusChanged fires on every SyncStatus transition.
	EventSyncStatusChanged = "sync_status_changed"
	// EventDataUpdated fires after a successful push or pull; subscribers
	// (UI, notification wiring) refresh from the local store.
	EventDataUpdated = "data_updated"
)

// Event is a lightweight in-process notification. Delivery is
// fire-and-forget, at most once per publish.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Handler reacts to an event. Handlers run synchronously on the
// publisher's goroutine; slow consumers should hand off themselves.
type Handler func(event *Event) error

// Bus provides in-process pub/sub, owned by the composition root.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for an event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type. Handler errors are
// dropped; there is no delivery guarantee.
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	for _, handler := range handlers {
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event. Nil bus is a
// no-op so components can run without wiring.
func (b *Bus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
