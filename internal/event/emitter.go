package event

import "sync"

// Emitter provides thread-safe registration and synchronous fan-out of
// lifecycle events (agent created/closed/selected). For per-turn agent
// events use the channel-based Sink instead; handlers here run on the
// caller's goroutine and must be fast.
type Emitter[E any] struct {
	mu sync.RWMutex
	// +checklocks:mu
	handlers []func(E)
}

// Subscribe registers a handler. Handlers are invoked in registration order.
func (e *Emitter[E]) Subscribe(handler func(E)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
}

// Emit delivers an event to every registered handler. The handler slice is
// snapshotted first, so subscribing during emission is safe.
func (e *Emitter[E]) Emit(ev E) {
	e.mu.RLock()
	handlers := make([]func(E), len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}
