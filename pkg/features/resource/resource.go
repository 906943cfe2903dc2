package resource

import (
	"context"
	"sync"
	"time"

	"github.com/ripple-dev/ripple/pkg/ripple"
)

// State represents the current state of a resource.
type State int

const (
	Pending State = iota // Initial state, before first fetch
	Loading              // Fetch in progress
	Ready                // Data successfully loaded
	Error                // Fetch failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	}
	return "unknown"
}

// Resource manages asynchronous data fetching and exposes its lifecycle
// through reactive values.
type Resource[T any] struct {
	rt      *ripple.Runtime
	fetcher func(context.Context) (T, error)

	state *ripple.Ref[State]
	data  *ripple.Ref[T]
	err   *ripple.Ref[error]

	// Options
	staleTime  time.Duration
	retryCount int
	retryDelay time.Duration
	timeout    time.Duration
	onSuccess  func(T)
	onError    func(error)

	// Internal
	lastFetch time.Time
	fetchID   uint64 // outdated fetches are ignored, not cancelled mid-flight
	cancel    context.CancelFunc
	dispose   ripple.Disposer
	mu        sync.Mutex
}

// New creates a Resource with the given fetcher and triggers the first
// fetch immediately. A nil runtime uses the default runtime.
func New[T any](rt *ripple.Runtime, fetcher func(context.Context) (T, error)) *Resource[T] {
	if rt == nil {
		rt = ripple.DefaultRuntime()
	}
	var zero T
	r := &Resource[T]{
		rt:      rt,
		fetcher: fetcher,
		state:   ripple.NewRef(rt, Pending),
		data:    ripple.NewRef(rt, zero),
		err:     ripple.NewRef[error](rt, nil),
	}
	r.Fetch()
	return r
}

// NewWithKey creates a Resource that refetches whenever the key changes.
// The key function runs under dependency tracking, so any reactive reads
// inside it subscribe the resource to those values.
func NewWithKey[K comparable, T any](rt *ripple.Runtime, key func() K, fetcher func(context.Context, K) (T, error)) *Resource[T] {
	if rt == nil {
		rt = ripple.DefaultRuntime()
	}
	var zero T
	r := &Resource[T]{
		rt:      rt,
		state:   ripple.NewRef(rt, Pending),
		data:    ripple.NewRef(rt, zero),
		err:     ripple.NewRef[error](rt, nil),
	}
	// The fetcher runs on its own goroutine, outside any tracking scope,
	// so reading the key here does not create dependencies.
	r.fetcher = func(ctx context.Context) (T, error) {
		return fetcher(ctx, key())
	}

	first := true
	effect := rt.CreateEffect(func() ripple.Cleanup {
		key() // track
		if first {
			first = false
			r.Fetch()
		} else {
			r.Refetch()
		}
		return nil
	})
	r.dispose = effect.Disposer()
	return r
}

// State returns the current lifecycle state, tracked reactively.
func (r *Resource[T]) State() State {
	return r.state.Get()
}

// IsLoading reports whether a fetch is pending or in flight.
func (r *Resource[T]) IsLoading() bool {
	s := r.state.Get()
	return s == Loading || s == Pending
}

func (r *Resource[T]) IsReady() bool {
	return r.state.Get() == Ready
}

func (r *Resource[T]) IsError() bool {
	return r.state.Get() == Error
}

// Data returns the last successfully loaded value, tracked reactively.
func (r *Resource[T]) Data() T {
	return r.data.Get()
}

// DataOr returns the loaded value, or fallback until the resource is Ready.
func (r *Resource[T]) DataOr(fallback T) T {
	if r.IsReady() {
		return r.data.Get()
	}
	return fallback
}

func (r *Resource[T]) Error() error {
	return r.err.Get()
}

// Fetch triggers a fetch unless the current data is still fresh.
// Use Refetch to bypass the stale check.
func (r *Resource[T]) Fetch() {
	r.mu.Lock()
	fresh := r.state.Peek() == Ready && time.Since(r.lastFetch) < r.staleTime
	r.mu.Unlock()
	if fresh {
		return
	}
	r.Refetch()
}

// Refetch forces a fetch. A fetch already in flight is superseded: its
// result is discarded when it lands.
func (r *Resource[T]) Refetch() {
	r.mu.Lock()
	r.fetchID++
	currentID := r.fetchID
	if r.cancel != nil {
		r.cancel()
	}
	var ctx context.Context
	var cancel context.CancelFunc
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), r.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	r.cancel = cancel
	retryCount := r.retryCount
	retryDelay := r.retryDelay
	r.mu.Unlock()

	r.rt.Batch(func() {
		r.state.Set(Loading)
		r.err.Set(nil)
	})

	go func() {
		defer cancel()

		var result T
		var err error

		maxAttempts := 1 + retryCount
		for i := 0; i < maxAttempts; i++ {
			if i > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(retryDelay):
				}
			}

			if r.superseded(currentID) {
				return
			}

			result, err = r.fetcher(ctx)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				err = ctx.Err()
				break
			}
		}

		r.mu.Lock()
		if r.fetchID != currentID {
			r.mu.Unlock()
			return
		}
		r.lastFetch = time.Now()
		onSuccess, onError := r.onSuccess, r.onError
		r.mu.Unlock()

		if err != nil {
			r.rt.Batch(func() {
				r.err.Set(err)
				r.state.Set(Error)
			})
			if onError != nil {
				onError(err)
			}
			return
		}

		r.rt.Batch(func() {
			r.data.Set(result)
			r.state.Set(Ready)
		})
		if onSuccess != nil {
			onSuccess(result)
		}
	}()
}

func (r *Resource[T]) superseded(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetchID != id
}

// Invalidate marks the current data as stale so the next Fetch refetches.
func (r *Resource[T]) Invalidate() {
	r.mu.Lock()
	r.lastFetch = time.Time{}
	r.mu.Unlock()
}

// Mutate applies an optimistic local update to the loaded data.
func (r *Resource[T]) Mutate(fn func(T) T) {
	r.data.Set(fn(r.data.Peek()))
}

// Dispose stops the keyed-refetch effect and abandons any in-flight fetch.
// Safe to call on resources created with New.
func (r *Resource[T]) Dispose() {
	r.mu.Lock()
	r.fetchID++ // orphan in-flight fetches
	if r.cancel != nil {
		r.cancel()
	}
	dispose := r.dispose
	r.mu.Unlock()
	if dispose != nil {
		dispose()
	}
}
