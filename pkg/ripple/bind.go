package ripple

import "sync/atomic"

// This file is the boundary consumed by presentation-binding layers: they
// run a render function under RunTracked to learn which (source, key)
// pairs it read, then Subscribe those dependencies to their own
// re-invocation callback.

// TrackedResult is the outcome of RunTracked: the function's return value
// plus every dependency it read.
type TrackedResult struct {
	Result any
	Deps   []Dep
}

// probe is the throwaway computation RunTracked executes under. It leaves
// no subscriptions behind: it collects the records fn read and is removed
// from all of them before RunTracked returns.
type probe struct {
	id      uint64
	sources []*depRecord
}

func (p *probe) MarkDirty() {}
func (p *probe) ID() uint64 { return p.id }

func (p *probe) addSource(rec *depRecord) {
	for _, s := range p.sources {
		if s == rec {
			return
		}
	}
	p.sources = append(p.sources, rec)
}

// RunTracked executes fn with dependency recording active and returns its
// result together with the dependencies it read. Panics in fn propagate
// to the caller after the tracking frame is unwound.
func (rt *Runtime) RunTracked(fn func() any) TrackedResult {
	p := &probe{id: rt.nextID()}

	rt.pushComputation(p)
	defer func() {
		rt.popComputation()
		for _, rec := range p.sources {
			rec.unsubscribe(p)
		}
	}()

	result := fn()

	deps := make([]Dep, 0, len(p.sources))
	for _, rec := range p.sources {
		deps = append(deps, Dep{Source: rec.source, Key: rec.key, rec: rec})
	}
	return TrackedResult{Result: result, Deps: deps}
}

// subscription is an external binding callback registered against a set of
// dependency records. Its panics are recovered and reported so one broken
// binding cannot abort a flush.
type subscription struct {
	rt       *Runtime
	id       uint64
	fn       func()
	disposed atomic.Bool
}

func (s *subscription) ID() uint64 { return s.id }

func (s *subscription) MarkDirty() {
	if s.disposed.Load() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.rt.report(&Error{
				Code:    CodeComputation,
				Message: "subscription callback panicked",
				Cause:   recoverAsError(r),
			}, ContextSubscription, map[string]any{"subscription": s.id})
		}
	}()
	s.fn()
}

// Subscribe registers fn to run whenever any of the given dependencies is
// notified. Deps typically come from a previous RunTracked call. The
// returned disposer removes the subscription from every record and is
// idempotent.
func (rt *Runtime) Subscribe(deps []Dep, fn func()) Disposer {
	sub := &subscription{rt: rt, id: rt.nextID(), fn: fn}
	recs := make([]*depRecord, 0, len(deps))
	for _, d := range deps {
		if d.rec == nil {
			continue
		}
		d.rec.subscribe(sub)
		recs = append(recs, d.rec)
	}
	return func() {
		if sub.disposed.Swap(true) {
			return
		}
		for _, rec := range recs {
			rec.unsubscribe(sub)
		}
	}
}
