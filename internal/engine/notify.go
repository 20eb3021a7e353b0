package engine

import (
	"sync"

	"github.com/capitalize-ai/thinking-workspace/internal/model"
)

// Notifier receives engine events. Notify is called with the engine lock
// held and must not block or call back into the engine.
type Notifier interface {
	Notify(event model.Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(event model.Event)

// Notify implements Notifier.
func (f NotifierFunc) Notify(event model.Event) {
	f(event)
}

// Fanout delivers each event to every notifier in order.
type Fanout []Notifier

// Notify implements Notifier.
func (f Fanout) Notify(event model.Event) {
	for _, n := range f {
		if n != nil {
			n.Notify(event)
		}
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(model.Event) {}

// Hub fans events out to in-process subscribers of a workspace. Slow
// subscribers lose events instead of stalling the engine.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan model.Event
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan model.Event)}
}

// Subscribe returns a channel of events for workspaceID and a function that
// ends the subscription and closes the channel.
func (h *Hub) Subscribe(workspaceID string, buffer int) (<-chan model.Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan model.Event, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[workspaceID] == nil {
		h.subs[workspaceID] = make(map[int]chan model.Event)
	}
	h.subs[workspaceID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[workspaceID], id)
			if len(h.subs[workspaceID]) == 0 {
				delete(h.subs, workspaceID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of subscribers of workspaceID.
func (h *Hub) Subscribers(workspaceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[workspaceID])
}

// Notify implements Notifier.
func (h *Hub) Notify(event model.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs[event.WorkspaceID] {
		select {
		case ch <- event:
		default:
		}
	}
}
