package ripple

import (
	"fmt"
	"os"
)

// Error codes. Each reported engine error carries a stable code so callers
// can route or suppress classes of failures in a custom handler.
const (
	// CodeDepthExceeded: a computed evaluation chain exceeded
	// MaxDependencyDepth. Usually a circular dependency (A reads B reads A).
	// Recovered by returning the last cached value.
	CodeDepthExceeded = "R001"

	// CodeComputation: a user-supplied effect, computed derivation, watcher,
	// or binding callback panicked. Recovered at the invocation boundary;
	// the rest of the notification round still runs.
	CodeComputation = "R002"

	// CodeMisuse: an API was used outside its contract, for example calling
	// Resume more times than Pause. Clamped and reported, never thrown.
	CodeMisuse = "R003"

	// CodeUpdateStorm: a single flush kept producing new writes for more
	// than FlushPassLimit passes. The flush stops; remaining notifications
	// stay queued for the next trigger.
	CodeUpdateStorm = "R004"
)

// Error contexts passed to the error handler, naming the computation kind
// that failed.
const (
	ContextComputed     = "computed"
	ContextEffect       = "effect"
	ContextWatch        = "watch"
	ContextSubscription = "subscription"
	ContextScheduler    = "scheduler"
)

// Error is a reported engine error. It wraps the recovered cause, if any.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ripple [%s]: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("ripple [%s]: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// ErrorHandler receives every recovered engine error together with a
// context tag (which computation kind failed) and contextual data such as
// the source ID or key involved. Handlers must not panic.
type ErrorHandler func(err error, context string, data map[string]any)

// defaultErrorHandler writes reports to stderr.
func defaultErrorHandler(err error, context string, data map[string]any) {
	if len(data) > 0 {
		fmt.Fprintf(os.Stderr, "ripple: %s error: %v %v\n", context, err, data)
		return
	}
	fmt.Fprintf(os.Stderr, "ripple: %s error: %v\n", context, err)
}

// report routes an error to the configured handler. The handler itself is
// guarded: a panicking handler is swallowed so error reporting can never
// take down a flush.
func (rt *Runtime) report(err error, context string, data map[string]any) {
	rt.stats.errorsReported.Add(1)
	rt.emit(Event{Kind: EventError, Context: context, Err: err})

	handler := rt.snapshotConfig().ErrorHandler
	if handler == nil {
		handler = defaultErrorHandler
	}
	defer func() { _ = recover() }()
	handler(err, context, data)
}

// recoverAsError converts a recovered panic value into an error.
func recoverAsError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", v)
}
