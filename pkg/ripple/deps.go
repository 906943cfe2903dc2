package ripple

import "sync"

// depRecord is the dependency record for one (source, key) pair: the
// ordered set of listeners that read the key during their most recent
// execution. Subscribers are notified in subscription order, so removal
// preserves order rather than swapping with the tail.
type depRecord struct {
	source Source
	key    string

	mu   sync.Mutex
	subs []Listener
}

func newDepRecord(source Source, key string) *depRecord {
	return &depRecord{source: source, key: key}
}

// subscribe adds a listener, deduplicating by listener ID.
func (r *depRecord) subscribe(l Listener) {
	if l == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lid := l.ID()
	for _, existing := range r.subs {
		if existing.ID() == lid {
			return
		}
	}
	r.subs = append(r.subs, l)
}

// unsubscribe removes a listener, keeping the remaining subscription order.
func (r *depRecord) unsubscribe(l Listener) {
	if l == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lid := l.ID()
	for i, existing := range r.subs {
		if existing.ID() == lid {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			return
		}
	}
}

// snapshot copies the subscriber list so notification never holds the lock.
func (r *depRecord) snapshot() []Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := make([]Listener, len(r.subs))
	copy(subs, r.subs)
	return subs
}

// hasSubscribers reports whether any listener is currently subscribed.
func (r *depRecord) hasSubscribers() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs) > 0
}

// Dep identifies one (source, key) dependency observed by RunTracked.
type Dep struct {
	Source Source
	Key    string

	rec *depRecord
}
