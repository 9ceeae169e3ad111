package player

import (
	"sync"

	"github.com/google/uuid"
)

// flagHub broadcasts a boolean state to a set of subscribers.
// Subscriptions have set semantics: each Subscribe call registers one
// independent listener keyed by a generated ID, and the returned cancel
// function removes exactly that listener. A newly attached listener is
// invoked synchronously with the current value so late subscribers do
// not miss the present state.
type flagHub struct {
	mu      sync.RWMutex
	subs    map[string]func(bool)
	current bool
}

func newFlagHub() *flagHub {
	return &flagHub{
		subs: make(map[string]func(bool)),
	}
}

// Subscribe registers a listener and returns its cancel function.
func (h *flagHub) Subscribe(fn func(bool)) func() {
	h.mu.Lock()
	id := uuid.New().String()
	h.subs[id] = fn
	current := h.current
	h.mu.Unlock()

	fn(current)

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// Set updates the current value and notifies all subscribers.
// Notifications are delivered synchronously in the caller's goroutine
// so event ordering is preserved.
func (h *flagHub) Set(v bool) {
	h.mu.Lock()
	h.current = v
	subs := make([]func(bool), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Value returns the current value.
func (h *flagHub) Value() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}
