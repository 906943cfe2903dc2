package ripple

import "sync"

// Ref is the reactive single-value container: primitives are never
// wrapped, so a value that needs tracking on its own lives in a Ref.
// Reading through Get records a dependency; Set compares against the
// current value and notifies only on a real change.
type Ref[T any] struct {
	rt *Runtime
	id uint64

	rec *depRecord

	mu    sync.RWMutex
	value T

	// equal overrides the default equality check when non-nil.
	equal func(T, T) bool
}

// NewRef creates a single-value container in the Runtime. A nil rt means
// the default Runtime.
func NewRef[T any](rt *Runtime, initial T) *Ref[T] {
	if rt == nil {
		rt = defaultRuntime
	}
	r := &Ref[T]{
		rt:    rt,
		value: initial,
	}
	r.id = rt.nextID()
	r.rec = newDepRecord(r, "value")
	return r
}

// ID returns the unique identifier for this container.
func (r *Ref[T]) ID() uint64 { return r.id }

// Get returns the current value and subscribes the currently-running
// tracked computation.
func (r *Ref[T]) Get() T {
	r.rt.track(r.rec)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}

// Peek returns the current value without subscribing.
func (r *Ref[T]) Peek() T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}

// Set updates the value and notifies subscribers if it changed.
func (r *Ref[T]) Set(value T) {
	r.mu.Lock()
	changed := !r.equals(r.value, value)
	if changed {
		r.value = value
	}
	r.mu.Unlock()

	if changed {
		r.rt.notifyRecord(r.rec)
	}
}

// Update atomically derives the next value from the current one.
func (r *Ref[T]) Update(fn func(T) T) {
	r.mu.Lock()
	next := fn(r.value)
	changed := !r.equals(r.value, next)
	if changed {
		r.value = next
	}
	r.mu.Unlock()

	if changed {
		r.rt.notifyRecord(r.rec)
	}
}

// WithEquals configures a custom equality function and returns the Ref.
func (r *Ref[T]) WithEquals(fn func(T, T) bool) *Ref[T] {
	r.equal = fn
	return r
}

// Notify manually notifies this Ref's subscribers.
func (r *Ref[T]) Notify() {
	r.rt.notifyRecord(r.rec)
}

func (r *Ref[T]) equals(a, b T) bool {
	if r.equal != nil {
		return r.equal(a, b)
	}
	return defaultEquals(a, b)
}
