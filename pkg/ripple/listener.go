package ripple

// Listener is anything that can be notified when a dependency changes.
// This interface is implemented by effects, computed nodes, watchers, and
// external binding subscriptions.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies changed.
	// For effects this re-runs the effect body.
	// For computed nodes this invalidates the cached value.
	// For binding subscriptions this invokes the bound callback.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	// Used for deduplication during a flush pass.
	ID() uint64
}

// Cleanup is a function returned by effects to release resources.
// It is called before the effect re-runs and when the effect is disposed.
type Cleanup func()

// Disposer removes a subscription. Disposers are idempotent: calling one
// twice is a no-op.
type Disposer func()

// Source identifies a reactive container (State, List, or Ref) that owns
// dependency records.
type Source interface {
	ID() uint64
}

// computation is a Listener that rebuilds its dependency set on every run.
// Implemented by effects, computed nodes, and the RunTracked probe.
type computation interface {
	Listener
	addSource(rec *depRecord)
}
