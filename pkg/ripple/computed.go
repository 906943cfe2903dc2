package ripple

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// computedNode is the cache engine behind State.Computed and Memo: a
// derivation function, its cached value, a dirty flag, and the dependency
// records it read during its last evaluation.
//
// Recomputation is lazy (only a read triggers it); invalidation is eager
// and synchronous with the triggering write. The per-goroutine
// computeDepth counter bounds nested recomputation so circular chains
// (A reads B reads A) surface CodeDepthExceeded instead of overflowing
// the stack.
type computedNode struct {
	rt  *Runtime
	id  uint64
	rec *depRecord
	fn  func() any

	mu    sync.Mutex
	value any

	valid atomic.Bool

	sources   []*depRecord
	sourcesMu sync.Mutex
}

func newComputedNode(rt *Runtime, rec *depRecord, fn func() any) *computedNode {
	return &computedNode{
		rt:  rt,
		id:  rt.nextID(),
		rec: rec,
		fn:  fn,
	}
}

// ID implements Listener.
func (n *computedNode) ID() uint64 { return n.id }

// MarkDirty invalidates the cache and propagates the invalidation to this
// node's own subscribers. Implements Listener.
func (n *computedNode) MarkDirty() {
	if n.valid.CompareAndSwap(true, false) {
		n.rt.notifyRecord(n.rec)
	}
}

// addSource implements computation.
func (n *computedNode) addSource(rec *depRecord) {
	n.sourcesMu.Lock()
	defer n.sourcesMu.Unlock()
	for _, s := range n.sources {
		if s == rec {
			return
		}
	}
	n.sources = append(n.sources, rec)
}

// get returns the cached value, recomputing first when dirty.
func (n *computedNode) get() any {
	if !n.valid.Load() {
		n.recompute()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.value
}

// peek is get without the caller having tracked the node's record.
func (n *computedNode) peek() any {
	return n.get()
}

// recompute evaluates the derivation with dependency tracking active.
// The previous dependency memberships are cleared first, so the node's
// dependency set exactly reflects this evaluation's reads.
func (n *computedNode) recompute() {
	ctx := n.rt.context()
	cfg := n.rt.snapshotConfig()

	ctx.computeDepth++
	defer func() {
		ctx.computeDepth--
		n.rt.releaseContext(ctx)
	}()

	if ctx.computeDepth > cfg.MaxDependencyDepth {
		n.rt.stats.depthExceeded.Add(1)
		// Keep the last-good cache and stop the chain here: marking the
		// node valid lets the outer frames finish with the stale value.
		n.valid.Store(true)
		n.rt.report(&Error{
			Code:    CodeDepthExceeded,
			Message: fmt.Sprintf("computed evaluation exceeded depth %d (circular dependency?)", cfg.MaxDependencyDepth),
		}, ContextComputed, map[string]any{"source": n.rec.source.ID(), "key": n.rec.key})
		return
	}

	n.sourcesMu.Lock()
	for _, src := range n.sources {
		src.unsubscribe(n)
	}
	n.sources = n.sources[:0]
	n.sourcesMu.Unlock()

	n.rt.stats.recomputes.Add(1)
	n.rt.emit(Event{Kind: EventRecompute, Source: n.rec.source.ID(), Key: n.rec.key})

	n.rt.pushComputation(n)
	defer n.rt.popComputation()

	var newValue any
	failed := false
	func() {
		defer func() {
			if r := recover(); r != nil {
				failed = true
				n.rt.report(&Error{
					Code:    CodeComputation,
					Message: "computed derivation panicked",
					Cause:   recoverAsError(r),
				}, ContextComputed, map[string]any{"source": n.rec.source.ID(), "key": n.rec.key})
			}
		}()
		newValue = n.fn()
	}()

	if !failed {
		n.mu.Lock()
		n.value = newValue
		n.mu.Unlock()
	}
	// A failed derivation retains its last-good value.
	n.valid.Store(true)
}

// Memo is a standalone typed computed value: a cached derivation that
// tracks its dependencies and can itself be depended on. It is the
// free-floating counterpart to State.Computed for values that do not live
// under a record key.
type Memo[T any] struct {
	node *computedNode
}

// NewMemo creates a memo in the Runtime. The computation does not run
// until the first Get. A nil rt means the default Runtime.
func NewMemo[T any](rt *Runtime, compute func() T) *Memo[T] {
	if rt == nil {
		rt = defaultRuntime
	}
	m := &Memo[T]{}
	rec := newDepRecord(m, "value")
	m.node = newComputedNode(rt, rec, func() any { return compute() })
	return m
}

// Get returns the memo's value, recomputing when dirty, and subscribes the
// currently-running tracked computation.
func (m *Memo[T]) Get() T {
	m.node.rt.track(m.node.rec)
	v, _ := m.node.get().(T)
	return v
}

// Peek returns the value without subscribing. Still recomputes when dirty.
func (m *Memo[T]) Peek() T {
	v, _ := m.node.peek().(T)
	return v
}

// ID returns the unique identifier for this memo.
func (m *Memo[T]) ID() uint64 { return m.node.id }
