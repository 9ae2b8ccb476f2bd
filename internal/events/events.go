// Package events implements a small synchronous event hub: named events fan
// out to registered handlers in registration order. UI collaborators and the
// dev server subscribe here for update and install notifications.
package events

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// HandlerFunc handles one emitted event payload.
type HandlerFunc func(payload any)

type handler struct {
	id int
	fn HandlerFunc
}

// Hub maps event names to handler lists. All methods are safe for concurrent
// use; Emit runs handlers synchronously on the calling goroutine.
type Hub struct {
	mu       sync.Mutex
	nextID   int
	handlers map[string][]handler
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{handlers: make(map[string][]handler)}
}

// On registers fn for event and returns a token for Off. Go functions are
// not comparable, so removal is by token rather than by callback value.
func (h *Hub) On(event string, fn HandlerFunc) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.handlers[event] = append(h.handlers[event], handler{id: h.nextID, fn: fn})
	return h.nextID
}

// Off removes the handler registered under id for event. Removing an unknown
// token is a no-op.
func (h *Hub) Off(event string, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.handlers[event]
	for i := range list {
		if list[i].id == id {
			h.handlers[event] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(h.handlers[event]) == 0 {
		delete(h.handlers, event)
	}
}

// Emit invokes every handler registered for event, in registration order,
// and returns after all have run. A panicking handler does not prevent the
// remaining handlers from running.
func (h *Hub) Emit(event string, payload any) {
	h.mu.Lock()
	list := make([]handler, len(h.handlers[event]))
	copy(list, h.handlers[event])
	h.mu.Unlock()

	for i := range list {
		invoke(event, list[i].fn, payload)
	}
}

func invoke(event string, fn HandlerFunc, payload any) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{"event": event, "panic": r}).
				Warn("event handler panicked")
		}
	}()
	fn(payload)
}

// Len returns the number of handlers registered for event.
func (h *Hub) Len(event string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handlers[event])
}

// Clear removes every handler for every event.
func (h *Hub) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers = make(map[string][]handler)
}
