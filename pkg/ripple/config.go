package ripple

// Debug holds package-wide diagnostic switches. Set at startup; not
// synchronized.
var Debug struct {
	// LogFlush prints a line per flush pass.
	LogFlush bool
}

const (
	// DefaultMaxDependencyDepth is the default bound on nested computed
	// recomputations before a chain is treated as circular.
	DefaultMaxDependencyDepth = 100

	// DefaultFlushPassLimit is the default bound on consecutive flush
	// passes produced by writes occurring during the flush itself.
	DefaultFlushPassLimit = 100
)

// Config is the process-wide (per-Runtime) engine configuration.
// Zero-valued fields keep their current setting when passed to Configure.
type Config struct {
	// MaxDependencyDepth bounds nested computed evaluation. When a chain
	// exceeds it, the engine reports CodeDepthExceeded and returns the
	// last cached value instead of recursing further.
	MaxDependencyDepth int

	// FlushPassLimit bounds how many times a single flush re-runs for
	// writes issued by its own subscribers before reporting
	// CodeUpdateStorm and deferring the remainder.
	FlushPassLimit int

	// ErrorHandler receives recovered engine errors. When no handler is
	// installed reports go to the default stderr sink. Leaving this nil in
	// a Configure call keeps whatever handler is already installed.
	ErrorHandler ErrorHandler
}

func defaultConfig() Config {
	return Config{
		MaxDependencyDepth: DefaultMaxDependencyDepth,
		FlushPassLimit:     DefaultFlushPassLimit,
	}
}

// Configure merges non-zero fields of cfg into the Runtime configuration.
// A nil ErrorHandler keeps the currently installed handler; use
// ResetErrorHandler to return to the default stderr sink.
func (rt *Runtime) Configure(cfg Config) {
	rt.configMu.Lock()
	defer rt.configMu.Unlock()

	if cfg.MaxDependencyDepth > 0 {
		rt.config.MaxDependencyDepth = cfg.MaxDependencyDepth
	}
	if cfg.FlushPassLimit > 0 {
		rt.config.FlushPassLimit = cfg.FlushPassLimit
	}
	if cfg.ErrorHandler != nil {
		rt.config.ErrorHandler = cfg.ErrorHandler
	}
}

// ResetErrorHandler removes any installed error handler, restoring the
// default stderr sink. Configure cannot express this: its nil ErrorHandler
// means "keep current".
func (rt *Runtime) ResetErrorHandler() {
	rt.configMu.Lock()
	defer rt.configMu.Unlock()
	rt.config.ErrorHandler = nil
}

func (rt *Runtime) snapshotConfig() Config {
	rt.configMu.RLock()
	defer rt.configMu.RUnlock()
	return rt.config
}
