package ripple

import (
	"testing"
)

func TestEffectRunsImmediately(t *testing.T) {
	rt := NewRuntime()
	ran := false
	rt.CreateEffect(func() Cleanup {
		ran = true
		return nil
	})
	if !ran {
		t.Error("effect did not run on creation")
	}
}

func TestEffectCleanupBetweenRuns(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewState(map[string]any{"v": 0})

	var events []string
	rt.CreateEffect(func() Cleanup {
		_ = s.Get("v")
		events = append(events, "run")
		return func() { events = append(events, "cleanup") }
	})

	s.Set("v", 1)
	s.Set("v", 2)

	want := []string{"run", "cleanup", "run", "cleanup", "run"}
	if len(events) != len(want) {
		t.Fatalf("expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, events[i], want[i])
		}
	}
}

func TestEffectDisposerIdempotent(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewState(map[string]any{"v": 0})

	runs := 0
	cleanups := 0
	e := rt.CreateEffect(func() Cleanup {
		runs++
		_ = s.Get("v")
		return func() { cleanups++ }
	})

	e.Dispose()
	e.Dispose() // no-op

	if cleanups != 1 {
		t.Errorf("double dispose ran cleanup %d times", cleanups)
	}

	s.Set("v", 1)
	if runs != 1 {
		t.Errorf("disposed effect re-ran: %d runs", runs)
	}
}

func TestEffectFirstRunPanicPropagates(t *testing.T) {
	rt := NewRuntime()
	defer func() {
		if recover() == nil {
			t.Error("setup-time panic was swallowed")
		}
	}()
	rt.CreateEffect(func() Cleanup {
		panic("setup bug")
	})
}

func TestEffectRerunPanicIsRecovered(t *testing.T) {
	rt := NewRuntime()
	var contexts []string
	rt.Configure(Config{ErrorHandler: func(err error, context string, data map[string]any) {
		contexts = append(contexts, context)
	}})

	s := rt.NewState(map[string]any{"v": 0})

	rt.CreateEffect(func() Cleanup {
		if s.GetInt("v") > 0 {
			panic("re-run bug")
		}
		return nil
	})

	// Another subscriber of the same key, registered after the panicking
	// one: it must still be notified in the same round.
	survivor := 0
	rt.CreateEffect(func() Cleanup {
		survivor++
		_ = s.Get("v")
		return nil
	})

	s.Set("v", 1)

	if len(contexts) != 1 || contexts[0] != ContextEffect {
		t.Errorf("expected one effect error report, got %v", contexts)
	}
	if survivor != 2 {
		t.Errorf("panicking effect aborted the flush: survivor ran %d times", survivor)
	}
}

func TestEffectCleanupPanicIsRecovered(t *testing.T) {
	rt := NewRuntime()
	var contexts []string
	rt.Configure(Config{ErrorHandler: func(err error, context string, data map[string]any) {
		contexts = append(contexts, context)
	}})

	s := rt.NewState(map[string]any{"v": 0})

	runs := 0
	rt.CreateEffect(func() Cleanup {
		runs++
		_ = s.Get("v")
		return func() { panic("cleanup bug") }
	})

	// A second subscriber of the same key: a panicking cleanup in the
	// first must not stop this one from being notified.
	survivor := 0
	rt.CreateEffect(func() Cleanup {
		survivor++
		_ = s.Get("v")
		return nil
	})

	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("cleanup panic escaped to the writer: %v", r)
			}
		}()
		s.Set("v", 1)
	}()

	if len(contexts) != 1 || contexts[0] != ContextEffect {
		t.Errorf("expected one effect error report, got %v", contexts)
	}
	if runs != 2 {
		t.Errorf("panicking cleanup blocked the effect body: %d runs", runs)
	}
	if survivor != 2 {
		t.Errorf("panicking cleanup aborted the flush: survivor ran %d times", survivor)
	}
}

func TestUntrackIsolation(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewState(map[string]any{"tracked": 1, "hidden": 2})

	runs := 0
	rt.CreateEffect(func() Cleanup {
		runs++
		_ = s.Get("tracked")
		rt.Untracked(func() any {
			return s.Get("hidden")
		})
		return nil
	})

	s.Set("hidden", 99)
	if runs != 1 {
		t.Errorf("untracked read joined the dependency set: %d runs", runs)
	}
	s.Set("tracked", 5)
	if runs != 2 {
		t.Errorf("tracked read lost: %d runs", runs)
	}
}

func TestUntrackedRestoredOnPanic(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewState(map[string]any{"v": 1})

	runs := 0
	rt.CreateEffect(func() Cleanup {
		runs++
		func() {
			defer func() { _ = recover() }()
			rt.Untracked(func() any {
				panic("inside untracked")
			})
		}()
		// Tracking must be restored here.
		_ = s.Get("v")
		return nil
	})

	s.Set("v", 2)
	if runs != 2 {
		t.Errorf("tracking frame not restored after panic in Untracked: %d runs", runs)
	}
}

func TestWatchFiresOnlyOnChange(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewState(map[string]any{"v": 1})

	type change struct{ newV, oldV any }
	var changes []change
	WatchKey(s, "v", func(newValue, oldValue any) {
		changes = append(changes, change{newValue, oldValue})
	})

	if len(changes) != 0 {
		t.Fatalf("watch fired on the baseline run: %v", changes)
	}

	s.Set("v", 1) // no-op write
	if len(changes) != 0 {
		t.Errorf("watch fired without a value change: %v", changes)
	}

	s.Set("v", 7)
	if len(changes) != 1 {
		t.Fatalf("expected one change, got %v", changes)
	}
	if changes[0].newV != 7 || changes[0].oldV != 1 {
		t.Errorf("expected (7, 1), got (%v, %v)", changes[0].newV, changes[0].oldV)
	}
}

func TestWatchFunction(t *testing.T) {
	rt := NewRuntime()
	a := NewRef(rt, 1)
	b := NewRef(rt, 2)

	var sums []int
	dispose := Watch(rt, func() int { return a.Get() + b.Get() }, func(newValue, oldValue int) {
		sums = append(sums, newValue)
	})

	a.Set(10)
	b.Set(20)
	if len(sums) != 2 || sums[0] != 12 || sums[1] != 30 {
		t.Errorf("expected [12 30], got %v", sums)
	}

	dispose()
	dispose() // idempotent
	a.Set(100)
	if len(sums) != 2 {
		t.Errorf("disposed watch fired: %v", sums)
	}
}

func TestWatchCallbackReadsAreUntracked(t *testing.T) {
	rt := NewRuntime()
	trigger := NewRef(rt, 0)
	other := NewRef(rt, 0)

	fires := 0
	Watch(rt, func() int { return trigger.Get() }, func(newValue, oldValue int) {
		fires++
		_ = other.Get() // must not subscribe
	})

	trigger.Set(1)
	if fires != 1 {
		t.Fatalf("expected one fire, got %d", fires)
	}
	other.Set(5)
	if fires != 1 {
		t.Errorf("callback read created a dependency: %d fires", fires)
	}
}
