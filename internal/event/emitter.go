// Package event provides generic one-way notification fan-out.
package event

import "sync"

// Emitter delivers events to registered handlers. It carries gantry's
// one-way notifications: the supervisor's exit and output events and the
// controller's phase changes all flow through an Emitter, with producers
// emitting from their own goroutines.
type Emitter[E any] struct {
	// +checklocks:mu
	handlers []func(E)
	mu       sync.RWMutex
}

// OnEvent registers an event handler. Handlers run synchronously on the
// emitting goroutine and must hand off rather than block.
func (e *Emitter[E]) OnEvent(handler func(E)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
}

// Emit sends an event to every handler registered so far. Iteration runs
// over a snapshot of the handler slice, so registering during emission is
// safe; the new handler sees only subsequent events.
func (e *Emitter[E]) Emit(event E) {
	e.mu.RLock()
	handlers := make([]func(E), len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
