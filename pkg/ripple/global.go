package ripple

// Package-level API operating on the default Runtime. Programs that need
// isolated reactive universes call the same methods on their own Runtime.

// Wrap returns the reactive wrapper for value in the default Runtime.
func Wrap(value any) any { return defaultRuntime.Wrap(value) }

// NewState wraps a plain record in the default Runtime.
func NewState(raw map[string]any) *State { return defaultRuntime.NewState(raw) }

// NewList wraps a plain sequence in the default Runtime.
func NewList(raw []any) *List { return defaultRuntime.NewList(raw) }

// CreateEffect creates an effect in the default Runtime and runs it
// immediately.
func CreateEffect(fn func() Cleanup) *Effect { return defaultRuntime.CreateEffect(fn) }

// Track records a read of (source, key) in the default Runtime.
func Track(source recordHolder, key string) { defaultRuntime.Track(source, key) }

// Notify manually notifies subscribers of source in the default Runtime;
// with no keys, every known key of that source is notified.
func Notify(source recordHolder, keys ...string) { defaultRuntime.Notify(source, keys...) }

// Batch groups writes inside fn into a single flush on the default Runtime.
func Batch(fn func()) { defaultRuntime.Batch(fn) }

// Pause suspends notification delivery on the default Runtime.
func Pause() { defaultRuntime.Pause() }

// Resume undoes one Pause on the default Runtime.
func Resume(flush bool) { defaultRuntime.Resume(flush) }

// Untracked runs fn with dependency recording suspended on the default
// Runtime.
func Untracked(fn func() any) any { return defaultRuntime.Untracked(fn) }

// RunTracked executes fn with dependency recording active on the default
// Runtime and reports the dependencies it read.
func RunTracked(fn func() any) TrackedResult { return defaultRuntime.RunTracked(fn) }

// Subscribe registers fn against deps on the default Runtime.
func Subscribe(deps []Dep, fn func()) Disposer { return defaultRuntime.Subscribe(deps, fn) }

// Configure merges non-zero fields of cfg into the default Runtime's
// configuration.
func Configure(cfg Config) { defaultRuntime.Configure(cfg) }
