package ripple

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Runtime is an independent reactive universe: it owns the identity
// registry, the update scheduler, and the active-computation stacks.
// Most programs use the package-level API, which operates on a default
// Runtime; tests and embedders that need isolation can create their own.
//
// A Runtime is single-threaded cooperative: tracked computations, flushes,
// and notifications run to completion synchronously on the calling
// goroutine. Tracking contexts are kept per goroutine so unrelated
// goroutines never observe each other's computation stacks.
type Runtime struct {
	// contexts stores per-goroutine tracking contexts.
	contexts sync.Map // map[uint64]*trackingContext

	registry identityRegistry
	sched    schedulerState

	// config is guarded by configMu and read on every recompute/flush.
	config   Config
	configMu sync.RWMutex

	stats runtimeStats

	// observer receives scheduler events for introspection tooling.
	observer atomic.Pointer[Observer]

	ids atomic.Uint64
}

// NewRuntime creates an isolated reactive universe with default
// configuration.
func NewRuntime() *Runtime {
	rt := &Runtime{}
	rt.config = defaultConfig()
	return rt
}

// defaultRuntime backs the package-level API.
var defaultRuntime = NewRuntime()

// DefaultRuntime returns the Runtime used by the package-level API.
func DefaultRuntime() *Runtime { return defaultRuntime }

// nextID allocates a unique identifier for a source or listener.
func (rt *Runtime) nextID() uint64 {
	return rt.ids.Add(1)
}

// trackingContext holds the reactive tracking state for one goroutine
// within a Runtime.
type trackingContext struct {
	// stack is the active-computation stack. A nil entry is the sentinel
	// frame pushed by Untracked: reads under it are attributed to nothing.
	stack []computation

	// computeDepth counts nested computed recomputations, checked against
	// MaxDependencyDepth to break circular evaluation chains.
	computeDepth int
}

// goroutineID extracts the current goroutine's ID from the runtime stack.
// Implementation detail; never exposed.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	// The stack trace starts with "goroutine <id> ".
	var id uint64
	for i := 10; i < n; i++ {
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// context returns the tracking context for the current goroutine,
// creating it on first use.
func (rt *Runtime) context() *trackingContext {
	gid := goroutineID()
	if ctx, ok := rt.contexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}
	ctx := &trackingContext{}
	rt.contexts.Store(gid, ctx)
	return ctx
}

// lookupContext returns the current goroutine's tracking context without
// creating one. Read paths use this so a bare read on a fresh goroutine
// never allocates an entry.
func (rt *Runtime) lookupContext() *trackingContext {
	if ctx, ok := rt.contexts.Load(goroutineID()); ok {
		return ctx.(*trackingContext)
	}
	return nil
}

// releaseContext drops the current goroutine's context entry once nothing
// remains on it. Goroutine IDs are never reused, so an entry left behind
// by an exited goroutine would otherwise stay in the map forever.
func (rt *Runtime) releaseContext(ctx *trackingContext) {
	if len(ctx.stack) == 0 && ctx.computeDepth == 0 {
		rt.contexts.Delete(goroutineID())
	}
}

// currentComputation returns the computation on top of the stack, or nil
// when the stack is empty or the top frame is the untracked sentinel.
func (rt *Runtime) currentComputation() computation {
	ctx := rt.lookupContext()
	if ctx == nil || len(ctx.stack) == 0 {
		return nil
	}
	return ctx.stack[len(ctx.stack)-1]
}

// pushComputation enters a tracked (or, with nil, untracked) frame.
// Every push must be paired with a popComputation, including on panic.
func (rt *Runtime) pushComputation(c computation) {
	ctx := rt.context()
	ctx.stack = append(ctx.stack, c)
}

// popComputation exits the innermost frame, releasing the goroutine's
// context entry when it was the last one.
func (rt *Runtime) popComputation() {
	ctx := rt.lookupContext()
	if ctx == nil || len(ctx.stack) == 0 {
		return
	}
	ctx.stack = ctx.stack[:len(ctx.stack)-1]
	rt.releaseContext(ctx)
}

// track registers the currently-running computation as a subscriber of rec.
// A read outside any tracked computation records nothing.
func (rt *Runtime) track(rec *depRecord) {
	c := rt.currentComputation()
	if c == nil {
		return
	}
	rec.subscribe(c)
	c.addSource(rec)
}

// Track records a read of (source, key) against the currently-running
// tracked computation. It is called internally by every wrapper read path
// and is exposed so custom sources can participate in tracking.
func (rt *Runtime) Track(source recordHolder, key string) {
	rt.track(source.record(key))
}

// Untracked runs fn with dependency recording suspended: reads inside fn
// are not attributed to any outer computation. The previous frame is
// restored even when fn panics. Returns fn's return value.
func (rt *Runtime) Untracked(fn func() any) any {
	rt.pushComputation(nil)
	defer rt.popComputation()
	return fn()
}

// recordHolder is implemented by sources that expose per-key dependency
// records. It is the low-level hook behind Track and Notify.
type recordHolder interface {
	Source
	record(key string) *depRecord
	allRecords() []*depRecord
}
