// Package connectivity provides online/offline signals for the retry coordinator.
package connectivity

import (
	"sync"
)

// Handler is called on every online/offline transition.
type Handler func(online bool)

// SubscriptionID identifies a registered handler.
type SubscriptionID uint64

// Watcher is a source of connectivity transitions.
type Watcher interface {
	// Online returns the current connectivity state.
	Online() bool

	// Subscribe registers h for future transitions.
	Subscribe(h Handler) SubscriptionID

	// Unsubscribe removes a handler. Unknown IDs are ignored.
	Unsubscribe(id SubscriptionID)
}

// broadcaster holds the state and handler set shared by watcher implementations.
type broadcaster struct {
	mu       sync.Mutex
	online   bool
	nextID   SubscriptionID
	handlers map[SubscriptionID]Handler
}

func newBroadcaster(online bool) *broadcaster {
	return &broadcaster{
		online:   online,
		handlers: make(map[SubscriptionID]Handler),
	}
}

func (b *broadcaster) Online() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.online
}

func (b *broadcaster) Subscribe(h Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[b.nextID] = h
	return b.nextID
}

func (b *broadcaster) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, id)
}

// Subscribers returns the number of registered handlers.
func (b *broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}

// set updates the state and notifies handlers outside the lock. It reports whether
// the state changed.
func (b *broadcaster) set(online bool) bool {
	b.mu.Lock()
	if b.online == online {
		b.mu.Unlock()
		return false
	}
	b.online = online
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(online)
	}
	return true
}

// Manual is a Watcher driven by explicit SetOnline calls.
type Manual struct {
	*broadcaster
}

// NewManual creates a watcher with the given initial state.
func NewManual(online bool) *Manual {
	return &Manual{broadcaster: newBroadcaster(online)}
}

// SetOnline switches the state, notifying subscribers when it changes.
func (m *Manual) SetOnline(online bool) {
	m.set(online)
}
