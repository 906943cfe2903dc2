package ripple

import (
	"sync"
	"sync/atomic"
)

// Effect is a reactive side effect: its body runs once on creation to
// establish dependencies, then re-runs synchronously whenever any
// dependency changes. The dependency set is cleared and rebuilt on every
// run, so keys no longer read are no longer subscribed.
//
// The body may return a Cleanup, called before the next run and on
// disposal. Panics in the first (setup) run propagate to the caller;
// panics in notification-driven re-runs, whether in the body or in the
// cleanup, are recovered, reported to the error handler, and never abort
// the surrounding flush.
type Effect struct {
	rt *Runtime
	id uint64

	fn      func() Cleanup
	cleanup Cleanup

	sources   []*depRecord
	sourcesMu sync.Mutex

	disposed atomic.Bool
}

// CreateEffect creates an effect in the Runtime and runs it immediately.
func (rt *Runtime) CreateEffect(fn func() Cleanup) *Effect {
	e := &Effect{
		rt: rt,
		id: rt.nextID(),
		fn: fn,
	}
	e.run(false)
	return e
}

// ID implements Listener.
func (e *Effect) ID() uint64 { return e.id }

// MarkDirty re-runs the effect. Implements Listener.
func (e *Effect) MarkDirty() {
	e.run(true)
}

// addSource implements computation.
func (e *Effect) addSource(rec *depRecord) {
	e.sourcesMu.Lock()
	defer e.sourcesMu.Unlock()
	for _, s := range e.sources {
		if s == rec {
			return
		}
	}
	e.sources = append(e.sources, rec)
}

// clearSources removes this effect from every dependency record it joined
// during its previous run.
func (e *Effect) clearSources() {
	e.sourcesMu.Lock()
	defer e.sourcesMu.Unlock()
	for _, src := range e.sources {
		src.unsubscribe(e)
	}
	e.sources = e.sources[:0]
}

// run executes the effect body with tracking active. recovered selects
// the failure mode: notification-driven runs report panics instead of
// propagating them.
func (e *Effect) run(recovered bool) {
	if e.disposed.Load() {
		return
	}

	// A non-nil cleanup implies a notification-driven re-run (the setup run
	// has no prior cleanup), so a panic here must stay contained like a
	// panic in the body: reported, never escaping to the writer.
	if e.cleanup != nil {
		cleanup := e.cleanup
		e.cleanup = nil
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.rt.report(&Error{
						Code:    CodeComputation,
						Message: "effect cleanup panicked",
						Cause:   recoverAsError(r),
					}, ContextEffect, map[string]any{"effect": e.id})
				}
			}()
			cleanup()
		}()
	}

	e.clearSources()

	e.rt.stats.effectRuns.Add(1)
	e.rt.emit(Event{Kind: EventEffectRun, Source: e.id})

	e.rt.pushComputation(e)
	defer e.rt.popComputation()

	if !recovered {
		e.cleanup = e.fn()
		return
	}

	defer func() {
		if r := recover(); r != nil {
			e.rt.report(&Error{
				Code:    CodeComputation,
				Message: "effect body panicked",
				Cause:   recoverAsError(r),
			}, ContextEffect, map[string]any{"effect": e.id})
		}
	}()
	e.cleanup = e.fn()
}

// Dispose stops the effect, runs its pending cleanup, and removes it from
// every dependency record. Idempotent.
func (e *Effect) Dispose() {
	if e.disposed.Swap(true) {
		return
	}
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
	e.clearSources()
}

// Disposer returns the effect's disposer as a plain function.
func (e *Effect) Disposer() Disposer {
	return e.Dispose
}

// Watch evaluates fn once to capture a baseline, then re-evaluates it
// whenever a dependency changes and invokes cb(newValue, oldValue) only
// when the two differ (by value where feasible, by reference otherwise).
// The callback runs untracked, so its reads join no dependency set, and
// its panics are reported rather than propagated. A nil rt means the
// default Runtime.
func Watch[T any](rt *Runtime, fn func() T, cb func(newValue, oldValue T)) Disposer {
	if rt == nil {
		rt = defaultRuntime
	}
	var old T
	first := true

	e := rt.CreateEffect(func() Cleanup {
		value := fn()
		if first {
			first = false
			old = value
			return nil
		}
		if defaultEquals(value, old) {
			return nil
		}
		prev := old
		old = value

		rt.Untracked(func() any {
			defer func() {
				if r := recover(); r != nil {
					rt.report(&Error{
						Code:    CodeComputation,
						Message: "watch callback panicked",
						Cause:   recoverAsError(r),
					}, ContextWatch, nil)
				}
			}()
			cb(value, prev)
			return nil
		})
		return nil
	})

	return e.Dispose
}

// WatchKey watches a single State key.
func WatchKey(s *State, key string, cb func(newValue, oldValue any)) Disposer {
	return Watch(s.rt, func() any { return s.Get(key) }, cb)
}
