package ripple

import (
	"sort"
	"strconv"
	"sync"
)

// KeyLength is the synthetic length/structure key of a List. Every
// structural mutation notifies it, so computations that iterate or read
// the length invalidate even when no index they read was touched.
const KeyLength = "$length"

// List is the reactive wrapper around a plain ordered sequence ([]any).
//
// Element reads record a dependency on the index key; Len and iteration
// record the structural key. Every structural mutation (append, pop,
// shift, splice, sort, reverse, index assignment, truncation) routes
// through the same write path: one notification on the structural key plus
// one per index whose value actually changed, collected in a batch so
// subscribers run once per mutation.
type List struct {
	rt *Runtime
	id uint64

	mu  sync.RWMutex
	raw []any

	deps     map[string]*depRecord
	children map[int]any
}

func newList(rt *Runtime, raw []any) *List {
	return &List{
		rt:  rt,
		id:  rt.nextID(),
		raw: raw,
	}
}

// NewList wraps a plain sequence in the Runtime.
func (rt *Runtime) NewList(raw []any) *List {
	return rt.wrapSlice(raw)
}

// ID returns the unique identifier for this wrapper.
func (l *List) ID() uint64 { return l.id }

// Runtime returns the Runtime this wrapper belongs to.
func (l *List) Runtime() *Runtime { return l.rt }

func indexKey(i int) string { return strconv.Itoa(i) }

func (l *List) record(key string) *depRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recordLocked(key)
}

func (l *List) recordLocked(key string) *depRecord {
	if rec, ok := l.deps[key]; ok {
		return rec
	}
	if l.deps == nil {
		l.deps = make(map[string]*depRecord)
	}
	rec := newDepRecord(l, key)
	l.deps[key] = rec
	return rec
}

func (l *List) allRecords() []*depRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	recs := make([]*depRecord, 0, len(l.deps))
	for _, rec := range l.deps {
		recs = append(recs, rec)
	}
	return recs
}

// Get reads the element at index i, recording a dependency on that index.
// Nested plain containers are wrapped on demand, same as State.
// Out-of-range reads return nil (the index dependency is still recorded,
// so a later growth past i re-runs the reader).
func (l *List) Get(i int) any {
	if i < 0 {
		return nil
	}
	l.rt.track(l.record(indexKey(i)))

	l.mu.RLock()
	if i >= len(l.raw) {
		l.mu.RUnlock()
		return nil
	}
	value := l.raw[i]
	child, cached := l.children[i]
	l.mu.RUnlock()

	if !isPlainContainer(value) {
		return value
	}
	if cached {
		return child
	}

	wrapped := l.rt.Wrap(value)
	l.mu.Lock()
	if existing, ok := l.children[i]; ok {
		wrapped = existing
	} else {
		if l.children == nil {
			l.children = make(map[int]any)
		}
		l.children[i] = wrapped
	}
	l.mu.Unlock()
	return wrapped
}

// Len returns the current length, recording a dependency on the
// structural key.
func (l *List) Len() int {
	l.rt.track(l.record(KeyLength))
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.raw)
}

// Values returns a copy of the current elements (unwrapped), recording a
// dependency on the structural key.
func (l *List) Values() []any {
	l.rt.track(l.record(KeyLength))
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]any, len(l.raw))
	copy(out, l.raw)
	return out
}

// Peek reads index i without recording a dependency.
func (l *List) Peek(i int) any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.raw) {
		return nil
	}
	return l.raw[i]
}

// Raw returns the underlying slice. Mutating it directly bypasses change
// notification.
func (l *List) Raw() []any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.raw
}

// NotifyAll manually notifies every key this List has records for.
func (l *List) NotifyAll() {
	l.rt.Notify(l)
}

// Set assigns the element at index i. Out-of-range assignments are
// ignored; equal values do not notify. Like every other mutation it
// notifies the structural key plus the touched index key.
func (l *List) Set(i int, value any) {
	value = Unwrap(value)

	l.mu.Lock()
	if i < 0 || i >= len(l.raw) {
		l.mu.Unlock()
		return
	}
	if equalValues(l.raw[i], value) {
		l.mu.Unlock()
		return
	}
	l.raw[i] = value
	delete(l.children, i)
	rec := l.recordLocked(indexKey(i))
	lengthRec := l.recordLocked(KeyLength)
	l.mu.Unlock()

	l.rt.Batch(func() {
		l.rt.notifyRecord(lengthRec)
		l.rt.notifyRecord(rec)
	})
}

// mutate applies a structural change and notifies the structural key plus
// every index whose value changed, in one batch.
func (l *List) mutate(apply func(old []any) []any) {
	l.mu.Lock()
	old := l.raw
	next := apply(old)

	changed := make([]*depRecord, 0, 4)
	shorter := len(next)
	if len(old) < shorter {
		shorter = len(old)
	}
	for i := 0; i < shorter; i++ {
		if !equalValues(old[i], next[i]) {
			changed = append(changed, l.recordLocked(indexKey(i)))
			delete(l.children, i)
		}
	}
	longer := len(next)
	if len(old) > longer {
		longer = len(old)
	}
	for i := shorter; i < longer; i++ {
		changed = append(changed, l.recordLocked(indexKey(i)))
		delete(l.children, i)
	}

	structural := len(next) != len(old)
	var lengthRec *depRecord
	if structural || len(changed) > 0 {
		lengthRec = l.recordLocked(KeyLength)
	}
	l.raw = next
	l.mu.Unlock()

	if lengthRec == nil {
		return
	}
	l.rt.Batch(func() {
		l.rt.notifyRecord(lengthRec)
		for _, rec := range changed {
			l.rt.notifyRecord(rec)
		}
	})
}

// Append adds values to the end of the sequence.
func (l *List) Append(values ...any) {
	for i, v := range values {
		values[i] = Unwrap(v)
	}
	l.mutate(func(old []any) []any {
		return append(old, values...)
	})
}

// Pop removes the last element.
func (l *List) Pop() {
	l.mutate(func(old []any) []any {
		if len(old) == 0 {
			return old
		}
		return old[:len(old)-1]
	})
}

// Shift removes the first element.
func (l *List) Shift() {
	l.mutate(func(old []any) []any {
		if len(old) == 0 {
			return old
		}
		next := make([]any, len(old)-1)
		copy(next, old[1:])
		return next
	})
}

// Splice removes deleteCount elements starting at start and inserts the
// given values there, like the JavaScript method of the same name.
func (l *List) Splice(start, deleteCount int, values ...any) {
	for i, v := range values {
		values[i] = Unwrap(v)
	}
	l.mutate(func(old []any) []any {
		if start < 0 {
			start = 0
		}
		if start > len(old) {
			start = len(old)
		}
		if deleteCount < 0 {
			deleteCount = 0
		}
		if start+deleteCount > len(old) {
			deleteCount = len(old) - start
		}
		next := make([]any, 0, len(old)-deleteCount+len(values))
		next = append(next, old[:start]...)
		next = append(next, values...)
		next = append(next, old[start+deleteCount:]...)
		return next
	})
}

// Sort sorts the sequence in place using less.
func (l *List) Sort(less func(a, b any) bool) {
	l.mutate(func(old []any) []any {
		next := make([]any, len(old))
		copy(next, old)
		sort.SliceStable(next, func(i, j int) bool {
			return less(next[i], next[j])
		})
		return next
	})
}

// Reverse reverses the sequence in place.
func (l *List) Reverse() {
	l.mutate(func(old []any) []any {
		next := make([]any, len(old))
		for i, v := range old {
			next[len(old)-1-i] = v
		}
		return next
	})
}

// Truncate shortens the sequence to length n. A no-op when n is not
// smaller than the current length.
func (l *List) Truncate(n int) {
	l.mutate(func(old []any) []any {
		if n < 0 {
			n = 0
		}
		if n >= len(old) {
			return old
		}
		return old[:n]
	})
}
