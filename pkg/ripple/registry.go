package ripple

import (
	"reflect"
	"sync"
	"weak"
)

// identityRegistry associates raw containers with their wrappers so
// wrapping is idempotent: Wrap called twice on the same map or slice
// returns the same wrapper.
//
// Entries hold only weak references to wrappers. A wrapper stays alive as
// long as something references it (including a subscribed effect, whose
// dependency records point back at the source); once nothing does, the
// garbage collector may reclaim it and the stale entry is swept on a later
// registry operation. Any caller still holding the old wrapper keeps it
// reachable, so two live Wrap results for the same raw container are
// always the same wrapper.
type identityRegistry struct {
	mu     sync.Mutex
	states map[uintptr]weak.Pointer[State]
	lists  map[uintptr]weak.Pointer[List]
}

// rawPointer returns the identity of a raw container: the map's internal
// pointer, or a slice's data pointer. Empty slices have no stable identity
// and are not registered.
func rawPointer(v any) (uintptr, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	case reflect.Slice:
		if rv.IsNil() || rv.Len() == 0 {
			return 0, false
		}
		return rv.Pointer(), true
	}
	return 0, false
}

func (r *identityRegistry) lookupState(ptr uintptr) *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wp, ok := r.states[ptr]; ok {
		if s := wp.Value(); s != nil {
			return s
		}
		delete(r.states, ptr)
	}
	return nil
}

func (r *identityRegistry) storeState(ptr uintptr, s *State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.states == nil {
		r.states = make(map[uintptr]weak.Pointer[State])
	}
	r.sweepStatesLocked()
	r.states[ptr] = weak.Make(s)
}

func (r *identityRegistry) lookupList(ptr uintptr) *List {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wp, ok := r.lists[ptr]; ok {
		if l := wp.Value(); l != nil {
			return l
		}
		delete(r.lists, ptr)
	}
	return nil
}

func (r *identityRegistry) storeList(ptr uintptr, l *List) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lists == nil {
		r.lists = make(map[uintptr]weak.Pointer[List])
	}
	r.sweepListsLocked()
	r.lists[ptr] = weak.Make(l)
}

// sweepThreshold bounds how large a registry map may grow before dead
// entries are purged on insert.
const sweepThreshold = 1024

func (r *identityRegistry) sweepStatesLocked() {
	if len(r.states) < sweepThreshold {
		return
	}
	for ptr, wp := range r.states {
		if wp.Value() == nil {
			delete(r.states, ptr)
		}
	}
}

func (r *identityRegistry) sweepListsLocked() {
	if len(r.lists) < sweepThreshold {
		return
	}
	for ptr, wp := range r.lists {
		if wp.Value() == nil {
			delete(r.lists, ptr)
		}
	}
}
