package resource

import "time"

// StaleTime sets how long loaded data stays fresh. While fresh, Fetch is
// a no-op; Refetch always fetches.
func (r *Resource[T]) StaleTime(d time.Duration) *Resource[T] {
	r.mu.Lock()
	r.staleTime = d
	r.mu.Unlock()
	return r
}

// RetryOnError sets the number of retries and the delay between attempts.
func (r *Resource[T]) RetryOnError(count int, delay time.Duration) *Resource[T] {
	r.mu.Lock()
	r.retryCount = count
	r.retryDelay = delay
	r.mu.Unlock()
	return r
}

// Timeout bounds each fetch, including retries, with a deadline.
func (r *Resource[T]) Timeout(d time.Duration) *Resource[T] {
	r.mu.Lock()
	r.timeout = d
	r.mu.Unlock()
	return r
}

// OnSuccess registers a callback invoked after data loads successfully.
func (r *Resource[T]) OnSuccess(fn func(T)) *Resource[T] {
	r.mu.Lock()
	r.onSuccess = fn
	r.mu.Unlock()
	return r
}

// OnError registers a callback invoked after a fetch fails.
func (r *Resource[T]) OnError(fn func(error)) *Resource[T] {
	r.mu.Lock()
	r.onError = fn
	r.mu.Unlock()
	return r
}
