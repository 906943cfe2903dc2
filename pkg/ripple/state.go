package ripple

import "sync"

// KeyKeys is the synthetic structural key of a State: it is tracked by
// Keys, Len, and Has, and notified when the key set changes (a key is
// added or deleted), so iteration-shaped computations invalidate without
// subscribing to every individual key.
const KeyKeys = "$keys"

// State is the reactive wrapper around a plain record (map[string]any).
//
// Reads through Get record a dependency on the exact key read; nested
// plain containers are wrapped on demand the first time they are read and
// the child wrapper is cached, so repeated reads return the same child.
// Writes through Set compare against the current value and notify the
// scheduler only on a real change.
type State struct {
	rt *Runtime
	id uint64

	mu  sync.RWMutex
	raw map[string]any

	// deps holds one dependency record per tracked key, created lazily.
	deps map[string]*depRecord

	// children caches sub-wrappers keyed by the parent key, so repeated
	// reads of a nested container return the same wrapper.
	children map[string]any

	// computeds holds the computed nodes attached to keys of this State.
	computeds map[string]*computedNode
}

func newState(rt *Runtime, raw map[string]any) *State {
	return &State{
		rt:  rt,
		id:  rt.nextID(),
		raw: raw,
	}
}

// NewState wraps a plain record in the Runtime.
func (rt *Runtime) NewState(raw map[string]any) *State {
	return rt.wrapMap(raw)
}

// ID returns the unique identifier for this wrapper.
func (s *State) ID() uint64 { return s.id }

// Runtime returns the Runtime this wrapper belongs to.
func (s *State) Runtime() *Runtime { return s.rt }

// record returns the dependency record for key, creating it on first use.
// A computed key shares its node's record, so tracking and notification
// for the key and for the computed value are the same thing.
func (s *State) record(key string) *depRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked(key)
}

func (s *State) recordLocked(key string) *depRecord {
	if node, ok := s.computeds[key]; ok {
		return node.rec
	}
	if rec, ok := s.deps[key]; ok {
		return rec
	}
	if s.deps == nil {
		s.deps = make(map[string]*depRecord)
	}
	rec := newDepRecord(s, key)
	s.deps[key] = rec
	return rec
}

// allRecords returns every dependency record this State has created.
func (s *State) allRecords() []*depRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := make([]*depRecord, 0, len(s.deps)+len(s.computeds))
	for _, rec := range s.deps {
		recs = append(recs, rec)
	}
	for _, node := range s.computeds {
		recs = append(recs, node.rec)
	}
	return recs
}

// Get reads a key, recording the access against the currently-running
// tracked computation. A computed key returns its (possibly recomputed)
// cached value. A plain-container value is wrapped on demand.
func (s *State) Get(key string) any {
	s.mu.RLock()
	node := s.computeds[key]
	s.mu.RUnlock()

	if node != nil {
		s.rt.track(node.rec)
		return node.get()
	}

	s.rt.track(s.record(key))

	s.mu.RLock()
	value := s.raw[key]
	child, cached := s.children[key]
	s.mu.RUnlock()

	if !isPlainContainer(value) {
		return value
	}
	if cached {
		return child
	}

	wrapped := s.rt.Wrap(value)
	s.mu.Lock()
	if existing, ok := s.children[key]; ok {
		wrapped = existing
	} else {
		if s.children == nil {
			s.children = make(map[string]any)
		}
		s.children[key] = wrapped
	}
	s.mu.Unlock()
	return wrapped
}

// GetInt reads a key as an int, returning 0 for missing or mistyped values.
func (s *State) GetInt(key string) int {
	v, _ := s.Get(key).(int)
	return v
}

// GetString reads a key as a string.
func (s *State) GetString(key string) string {
	v, _ := s.Get(key).(string)
	return v
}

// GetBool reads a key as a bool.
func (s *State) GetBool(key string) bool {
	v, _ := s.Get(key).(bool)
	return v
}

// Set writes a key. Writing a value equal to the current one is a no-op
// and does not notify. Writing a wrapper stores its raw container.
// Assigning over a computed key is reported as misuse and ignored.
func (s *State) Set(key string, value any) {
	value = Unwrap(value)

	s.mu.Lock()
	if _, ok := s.computeds[key]; ok {
		s.mu.Unlock()
		s.rt.report(&Error{Code: CodeMisuse, Message: "cannot assign to computed key " + key}, ContextScheduler, map[string]any{"key": key})
		return
	}

	old, existed := s.raw[key]
	if existed && equalValues(old, value) {
		s.mu.Unlock()
		return
	}
	s.raw[key] = value
	delete(s.children, key)
	rec := s.recordLocked(key)
	var keysRec *depRecord
	if !existed {
		keysRec = s.recordLocked(KeyKeys)
	}
	s.mu.Unlock()

	if keysRec != nil {
		s.rt.Batch(func() {
			s.rt.notifyRecord(rec)
			s.rt.notifyRecord(keysRec)
		})
		return
	}
	s.rt.notifyRecord(rec)
}

// Delete removes a key, notifying its subscribers and the structural key.
// Deleting a missing key is a no-op.
func (s *State) Delete(key string) {
	s.mu.Lock()
	if _, ok := s.raw[key]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.raw, key)
	delete(s.children, key)
	rec := s.recordLocked(key)
	keysRec := s.recordLocked(KeyKeys)
	s.mu.Unlock()

	s.rt.Batch(func() {
		s.rt.notifyRecord(rec)
		s.rt.notifyRecord(keysRec)
	})
}

// Has reports whether key is present, tracking the structural key.
func (s *State) Has(key string) bool {
	s.rt.track(s.record(KeyKeys))
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.computeds[key]; ok {
		return true
	}
	_, ok := s.raw[key]
	return ok
}

// Keys returns the current plain keys, tracking the structural key.
func (s *State) Keys() []string {
	s.rt.track(s.record(KeyKeys))
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.raw))
	for k := range s.raw {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of plain keys, tracking the structural key.
func (s *State) Len() int {
	s.rt.track(s.record(KeyKeys))
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.raw)
}

// Peek reads a key without recording a dependency.
func (s *State) Peek(key string) any {
	s.mu.RLock()
	node := s.computeds[key]
	s.mu.RUnlock()
	if node != nil {
		return node.peek()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw[key]
}

// Raw returns the underlying record. Mutations made directly on it bypass
// change notification; use Notify afterwards to resynchronize subscribers.
func (s *State) Raw() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw
}

// Computed attaches a lazily-evaluated derived value to key. The
// derivation runs on first read, its result is cached, and the cache is
// invalidated eagerly when any dependency read during the last evaluation
// changes. Reading the key inside another tracked computation subscribes
// that computation to the computed value, so computeds form a dependency
// DAG; circular chains are broken by MaxDependencyDepth.
func (s *State) Computed(key string, fn func() any) {
	s.mu.Lock()
	// Adopt the key's existing record so prior subscribers carry over.
	var rec *depRecord
	if existing, ok := s.deps[key]; ok {
		rec = existing
		delete(s.deps, key)
	} else {
		rec = newDepRecord(s, key)
	}
	node := newComputedNode(s.rt, rec, fn)
	if s.computeds == nil {
		s.computeds = make(map[string]*computedNode)
	}
	s.computeds[key] = node
	delete(s.raw, key)
	delete(s.children, key)
	s.mu.Unlock()
}

// NotifyAll manually notifies every key this State has dependency records
// for, equivalent to Notify(state) with no keys.
func (s *State) NotifyAll() {
	s.rt.Notify(s)
}
