// Package ripple is a fine-grained state-reactivity engine.
//
// Plain data containers are wrapped so that reads performed inside a tracked
// computation are recorded as dependencies, and writes notify exactly the
// computations that depend on the written key. There is no diffing pass:
// every update flows from a (source, key) pair to its subscribers.
//
// The building blocks are:
//
//   - State: a reactive record wrapper over map[string]any, with
//     wrap-on-demand for nested containers.
//   - List: a reactive ordered-sequence wrapper over []any, where structural
//     mutations notify a synthetic length key plus the touched indices.
//   - Ref: a reactive single-value container for primitives.
//   - Computed keys: lazily cached derivations attached to a State key,
//     invalidated eagerly when any transitively-read dependency changes.
//   - Effects and watchers: callbacks re-run synchronously when their
//     dependencies change.
//   - Batch / Pause / Resume: scoped collection of writes flushed once.
//
// All scheduler state, the identity registry, and the active-computation
// stack live on a Runtime. The package-level API operates on a default
// Runtime; independent reactive universes can be created with NewRuntime.
//
// Example:
//
//	s := ripple.NewState(map[string]any{"a": 1, "b": 2})
//	ripple.CreateEffect(func() ripple.Cleanup {
//	    fmt.Println("a is", s.Get("a"))
//	    return nil
//	})
//	s.Set("b", 5) // no output: the effect never read "b"
//	s.Set("a", 9) // prints "a is 9"
package ripple
