package ripple

import "sync/atomic"

// runtimeStats holds engine counters, updated with atomics on the hot path.
type runtimeStats struct {
	flushes          atomic.Uint64
	flushPasses      atomic.Uint64
	notifications    atomic.Uint64
	effectRuns       atomic.Uint64
	recomputes       atomic.Uint64
	depthExceeded    atomic.Uint64
	errorsReported   atomic.Uint64
	pendingHighWater atomic.Uint64
}

// Stats is a point-in-time snapshot of engine counters.
type Stats struct {
	// Flushes is the number of completed flush cycles.
	Flushes uint64 `json:"flushes"`
	// FlushPasses counts individual passes; a flush whose subscribers
	// issue new writes runs more than one pass.
	FlushPasses uint64 `json:"flushPasses"`
	// Notifications counts listener invocations.
	Notifications uint64 `json:"notifications"`
	// EffectRuns counts effect executions, including initial runs.
	EffectRuns uint64 `json:"effectRuns"`
	// Recomputes counts computed-value recomputations.
	Recomputes uint64 `json:"recomputes"`
	// DepthExceeded counts broken circular evaluation chains.
	DepthExceeded uint64 `json:"depthExceeded"`
	// ErrorsReported counts errors routed to the error handler.
	ErrorsReported uint64 `json:"errorsReported"`
	// PendingHighWater is the largest pending-queue length observed.
	PendingHighWater uint64 `json:"pendingHighWater"`
	// Pending is the current pending-queue length.
	Pending int `json:"pending"`
}

// Stats returns a snapshot of the Runtime's counters.
func (rt *Runtime) Stats() Stats {
	rt.sched.mu.Lock()
	pending := len(rt.sched.pending)
	rt.sched.mu.Unlock()

	return Stats{
		Flushes:          rt.stats.flushes.Load(),
		FlushPasses:      rt.stats.flushPasses.Load(),
		Notifications:    rt.stats.notifications.Load(),
		EffectRuns:       rt.stats.effectRuns.Load(),
		Recomputes:       rt.stats.recomputes.Load(),
		DepthExceeded:    rt.stats.depthExceeded.Load(),
		ErrorsReported:   rt.stats.errorsReported.Load(),
		PendingHighWater: rt.stats.pendingHighWater.Load(),
		Pending:          pending,
	}
}

// EventKind classifies scheduler events emitted to the observer.
type EventKind string

const (
	EventNotify     EventKind = "notify"
	EventFlushStart EventKind = "flushStart"
	EventFlushEnd   EventKind = "flushEnd"
	EventEffectRun  EventKind = "effectRun"
	EventRecompute  EventKind = "recompute"
	EventError      EventKind = "error"
)

// Event is a scheduler event delivered to the installed Observer.
// Events are emitted synchronously on the flushing goroutine; observers
// must be fast and must not write reactive state.
type Event struct {
	Kind    EventKind `json:"kind"`
	Source  uint64    `json:"source,omitempty"`
	Key     string    `json:"key,omitempty"`
	Pass    int       `json:"pass,omitempty"`
	Context string    `json:"context,omitempty"`
	Err     error     `json:"-"`
}

// Observer receives scheduler events for introspection tooling such as
// the devtools server.
type Observer func(Event)

// SetObserver installs (or, with nil, removes) the Runtime's observer.
func (rt *Runtime) SetObserver(obs Observer) {
	if obs == nil {
		rt.observer.Store(nil)
		return
	}
	rt.observer.Store(&obs)
}

func (rt *Runtime) emit(ev Event) {
	if p := rt.observer.Load(); p != nil {
		(*p)(ev)
	}
}
