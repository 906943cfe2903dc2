package ripple

// Wrap returns the reactive wrapper for value.
//
// Plain records (map[string]any) become a *State and plain ordered
// sequences ([]any) become a *List; wrapping the same underlying container
// twice returns the same wrapper, and wrapping a value that is already a
// wrapper returns it unchanged. Primitives are returned as-is: they cannot
// carry dependency records, use a Ref instead.
func (rt *Runtime) Wrap(value any) any {
	switch v := value.(type) {
	case *State:
		return v
	case *List:
		return v
	case map[string]any:
		return rt.wrapMap(v)
	case []any:
		return rt.wrapSlice(v)
	}
	return value
}

func (rt *Runtime) wrapMap(raw map[string]any) *State {
	if raw == nil {
		raw = make(map[string]any)
	}
	ptr, ok := rawPointer(raw)
	if ok {
		if existing := rt.registry.lookupState(ptr); existing != nil {
			return existing
		}
	}
	s := newState(rt, raw)
	if ok {
		rt.registry.storeState(ptr, s)
	}
	return s
}

func (rt *Runtime) wrapSlice(raw []any) *List {
	ptr, ok := rawPointer(raw)
	if ok {
		if existing := rt.registry.lookupList(ptr); existing != nil {
			return existing
		}
	}
	l := newList(rt, raw)
	if ok {
		rt.registry.storeList(ptr, l)
	}
	return l
}

// Unwrap returns the raw container behind a wrapper, or the value itself
// when it is not wrapped. The returned container is live: mutating it
// directly bypasses change notification.
func Unwrap(value any) any {
	switch v := value.(type) {
	case *State:
		return v.Raw()
	case *List:
		return v.Raw()
	}
	return value
}

// IsWrapped reports whether value is a reactive wrapper.
func IsWrapped(value any) bool {
	switch value.(type) {
	case *State, *List:
		return true
	}
	return false
}

// isPlainContainer reports whether v is a wrappable raw container.
func isPlainContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}
