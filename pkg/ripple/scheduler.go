package ripple

import (
	"fmt"
	"sync"
)

// schedulerState is the per-Runtime update scheduler: batching depth, pause
// depth, the pending-notification queue, and the flush reentrancy guard.
//
// Notifications execute synchronously only when both depths are zero;
// otherwise they accumulate in pending, deduplicated by (source, key)
// record identity and kept in first-queued order.
type schedulerState struct {
	mu sync.Mutex

	batchDepth int
	pauseDepth int

	pending    []*depRecord
	pendingSet map[*depRecord]struct{}

	flushing bool
}

// enqueue adds rec to the pending queue. Caller holds s.mu.
func (s *schedulerState) enqueue(rec *depRecord) {
	if s.pendingSet == nil {
		s.pendingSet = make(map[*depRecord]struct{})
	}
	if _, ok := s.pendingSet[rec]; ok {
		return
	}
	s.pendingSet[rec] = struct{}{}
	s.pending = append(s.pending, rec)
}

// drain takes the current pending queue. Caller holds s.mu.
func (s *schedulerState) drain() []*depRecord {
	recs := s.pending
	s.pending = nil
	s.pendingSet = nil
	return recs
}

// notifyRecord is the single write-path entry point: every Set, structural
// mutation, computed invalidation, and manual Notify lands here.
func (rt *Runtime) notifyRecord(rec *depRecord) {
	rt.emit(Event{Kind: EventNotify, Source: rec.source.ID(), Key: rec.key})

	s := &rt.sched
	s.mu.Lock()
	s.enqueue(rec)
	if n := uint64(len(s.pending)); n > rt.stats.pendingHighWater.Load() {
		rt.stats.pendingHighWater.Store(n)
	}
	deferred := s.pauseDepth > 0 || s.batchDepth > 0 || s.flushing
	s.mu.Unlock()

	if deferred {
		return
	}
	rt.flush()
}

// flush runs pending notifications to completion. Writes issued by
// subscribers during a pass queue into pending and are handled by the next
// pass of the same flush, bounded by FlushPassLimit.
func (rt *Runtime) flush() {
	s := &rt.sched

	s.mu.Lock()
	if s.flushing || s.pauseDepth > 0 || s.batchDepth > 0 {
		s.mu.Unlock()
		return
	}
	s.flushing = true
	s.mu.Unlock()

	limit := rt.snapshotConfig().FlushPassLimit
	pass := 0

	defer func() {
		s.mu.Lock()
		s.flushing = false
		s.mu.Unlock()
		rt.stats.flushes.Add(1)
		rt.emit(Event{Kind: EventFlushEnd, Pass: pass})
	}()

	for {
		s.mu.Lock()
		if len(s.pending) == 0 || s.pauseDepth > 0 || s.batchDepth > 0 {
			s.mu.Unlock()
			return
		}
		recs := s.drain()
		s.mu.Unlock()

		pass++
		rt.stats.flushPasses.Add(1)
		rt.emit(Event{Kind: EventFlushStart, Pass: pass})
		if Debug.LogFlush {
			fmt.Printf("[ripple] flush pass %d: %d keys\n", pass, len(recs))
		}

		if limit > 0 && pass > limit {
			rt.report(&Error{
				Code:    CodeUpdateStorm,
				Message: fmt.Sprintf("flush exceeded %d passes; deferring %d pending keys", limit, len(recs)),
			}, ContextScheduler, map[string]any{"passes": pass})
			// Requeue so a later trigger can make progress.
			s.mu.Lock()
			for _, rec := range recs {
				s.enqueue(rec)
			}
			s.mu.Unlock()
			return
		}

		rt.dispatch(recs)
	}
}

// dispatch notifies the subscribers of the drained records once each, in
// subscription order, deduplicating listeners that subscribe to several of
// the flushed keys.
func (rt *Runtime) dispatch(recs []*depRecord) {
	seen := make(map[uint64]struct{})
	var ordered []Listener
	for _, rec := range recs {
		for _, l := range rec.snapshot() {
			if _, ok := seen[l.ID()]; ok {
				continue
			}
			seen[l.ID()] = struct{}{}
			ordered = append(ordered, l)
		}
	}

	for _, l := range ordered {
		rt.stats.notifications.Add(1)
		l.MarkDirty()
	}
}

// Batch groups writes inside fn: notifications are collected, deduplicated
// by (source, key), and flushed once when the outermost batch exits.
// Subscribers observe final values at flush time, never intermediates.
// A panic in fn propagates to the caller after the depth is unwound.
func (rt *Runtime) Batch(fn func()) {
	s := &rt.sched
	s.mu.Lock()
	s.batchDepth++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.batchDepth--
		done := s.batchDepth == 0 && s.pauseDepth == 0
		s.mu.Unlock()
		if done {
			rt.flush()
		}
	}()

	fn()
}

// BatchValue is Batch for functions that return a value. A nil rt means
// the default Runtime.
func BatchValue[T any](rt *Runtime, fn func() T) T {
	if rt == nil {
		rt = defaultRuntime
	}
	var out T
	rt.Batch(func() { out = fn() })
	return out
}

// Pause suspends notification delivery. Writes made while paused queue up,
// deduplicated by key. Pause calls nest.
func (rt *Runtime) Pause() {
	s := &rt.sched
	s.mu.Lock()
	s.pauseDepth++
	s.mu.Unlock()
}

// Resume undoes one Pause. When the pause depth reaches zero, flush=true
// delivers the queued notifications immediately; flush=false leaves them
// queued for the next flush trigger. Calling Resume with no matching Pause
// is clamped at zero and reported as misuse.
func (rt *Runtime) Resume(flush bool) {
	s := &rt.sched
	s.mu.Lock()
	if s.pauseDepth == 0 {
		s.mu.Unlock()
		rt.report(&Error{Code: CodeMisuse, Message: "Resume called more times than Pause"}, ContextScheduler, nil)
		return
	}
	s.pauseDepth--
	done := s.pauseDepth == 0 && s.batchDepth == 0
	s.mu.Unlock()

	if done && flush {
		rt.flush()
	}
}

// Notify manually notifies subscribers of the given source. With keys it
// notifies exactly those keys; with no keys it notifies every key the
// source has ever recorded a dependency for.
func (rt *Runtime) Notify(source recordHolder, keys ...string) {
	if len(keys) == 0 {
		rt.Batch(func() {
			for _, rec := range source.allRecords() {
				rt.notifyRecord(rec)
			}
		})
		return
	}
	rt.Batch(func() {
		for _, key := range keys {
			rt.notifyRecord(source.record(key))
		}
	})
}
