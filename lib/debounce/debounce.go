// Package debounce delays propagation of a rapidly-changing value until it
// has been stable for a configured window.
package debounce

import (
	"sync"
	"time"
)

// Emitter holds the most recent value set on it and emits that value once no
// newer value has arrived for the full window. Every Set restarts the timer;
// there is no leading-edge emission and no trailing accumulation. A closed
// emitter never fires.
type Emitter[T any] struct {
	mu      sync.Mutex
	window  time.Duration
	emit    func(T)
	timer   *time.Timer
	pending T
	armed   bool
	closed  bool
}

// New creates an emitter with the given stability window and emit callback.
func New[T any](window time.Duration, emit func(T)) *Emitter[T] {
	return &Emitter[T]{
		window: window,
		emit:   emit,
	}
}

// Set records a new value and restarts the delay timer.
func (e *Emitter[T]) Set(value T) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.pending = value
	e.armed = true
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.window, e.fire)
}

// SetWindow reconfigures the stability window. A pending value is re-armed
// against the new window rather than left on the old timer.
func (e *Emitter[T]) SetWindow(window time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.window = window
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.armed {
		e.timer = time.AfterFunc(e.window, e.fire)
	}
}

// Flush emits any pending value immediately, synchronously.
func (e *Emitter[T]) Flush() {
	e.mu.Lock()
	if e.closed || !e.armed {
		e.mu.Unlock()
		return
	}
	if e.timer != nil {
		if !e.timer.Stop() {
			// Timer already fired; let it deliver rather than emitting twice.
			e.mu.Unlock()
			return
		}
		e.timer = nil
	}
	value := e.pending
	e.armed = false
	emit := e.emit
	e.mu.Unlock()
	if emit != nil {
		emit(value)
	}
}

// Close cancels any pending emission. The emitter must never fire after its
// owner is gone.
func (e *Emitter[T]) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.armed = false
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Emitter[T]) fire() {
	e.mu.Lock()
	if e.closed || !e.armed {
		e.timer = nil
		e.mu.Unlock()
		return
	}
	value := e.pending
	e.armed = false
	e.timer = nil
	emit := e.emit
	e.mu.Unlock()
	if emit != nil {
		emit(value)
	}
}
