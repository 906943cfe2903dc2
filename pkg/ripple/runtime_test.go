package ripple

import (
	"sync"
	"testing"
)

func countContexts(rt *Runtime) int {
	n := 0
	rt.contexts.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func TestBareReadAllocatesNoContext(t *testing.T) {
	rt := NewRuntime()
	ref := NewRef(rt, 1)

	_ = ref.Get()

	if got := countContexts(rt); got != 0 {
		t.Errorf("untracked read allocated %d tracking contexts", got)
	}
}

func TestTrackingContextsReclaimed(t *testing.T) {
	rt := NewRuntime()
	ref := NewRef(rt, 1)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ref.Get()
			rt.Untracked(func() any { return ref.Get() })
			m := NewMemo(rt, func() int { return ref.Get() * 2 })
			_ = m.Get()
		}()
	}
	wg.Wait()

	// Goroutine IDs are never reused, so any entry left behind here would
	// be unreclaimable for the life of the Runtime.
	if got := countContexts(rt); got != 0 {
		t.Errorf("tracking contexts retained after goroutines exited: %d", got)
	}

	// The engine must still track normally afterwards.
	runs := 0
	e := rt.CreateEffect(func() Cleanup {
		runs++
		_ = ref.Get()
		return nil
	})
	defer e.Dispose()
	ref.Set(2)
	if runs != 2 {
		t.Errorf("effect ran %d times after context reclamation, want 2", runs)
	}
	if got := countContexts(rt); got != 0 {
		t.Errorf("tracking contexts retained after effect run: %d", got)
	}
}
