package ripple

import "testing"

func TestRunTrackedReportsDependencies(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewState(map[string]any{"a": 1, "b": 2, "c": 3})

	res := rt.RunTracked(func() any {
		return s.GetInt("a") + s.GetInt("b")
	})

	if res.Result != 3 {
		t.Errorf("expected result 3, got %v", res.Result)
	}
	if len(res.Deps) != 2 {
		t.Fatalf("expected 2 deps, got %d", len(res.Deps))
	}
	keys := map[string]bool{}
	for _, d := range res.Deps {
		if d.Source.ID() != s.ID() {
			t.Errorf("dep source %d, want %d", d.Source.ID(), s.ID())
		}
		keys[d.Key] = true
	}
	if !keys["a"] || !keys["b"] || keys["c"] {
		t.Errorf("wrong dep keys: %v", keys)
	}
}

func TestRunTrackedLeavesNoSubscriptions(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewState(map[string]any{"a": 1})

	before := rt.Stats().Notifications
	rt.RunTracked(func() any { return s.Get("a") })

	s.Set("a", 2)
	after := rt.Stats().Notifications
	if after != before {
		t.Errorf("probe left a live subscription: %d notifications", after-before)
	}
}

func TestSubscribeReinvokesBinding(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewState(map[string]any{"text": "hello"})

	res := rt.RunTracked(func() any { return s.Get("text") })

	invocations := 0
	dispose := rt.Subscribe(res.Deps, func() { invocations++ })

	s.Set("text", "world")
	if invocations != 1 {
		t.Fatalf("binding not re-invoked: %d", invocations)
	}

	s.Set("other", 1)
	if invocations != 1 {
		t.Errorf("binding invoked for unread key: %d", invocations)
	}

	dispose()
	dispose() // idempotent
	s.Set("text", "again")
	if invocations != 1 {
		t.Errorf("disposed binding invoked: %d", invocations)
	}
}

func TestSubscriptionPanicDoesNotAbortFlush(t *testing.T) {
	rt := NewRuntime()
	reports := 0
	rt.Configure(Config{ErrorHandler: func(err error, context string, data map[string]any) {
		if context == ContextSubscription {
			reports++
		}
	}})

	s := rt.NewState(map[string]any{"v": 0})
	res := rt.RunTracked(func() any { return s.Get("v") })
	rt.Subscribe(res.Deps, func() { panic("binding bug") })

	survivor := 0
	rt.CreateEffect(func() Cleanup {
		survivor++
		_ = s.Get("v")
		return nil
	})

	s.Set("v", 1)

	if reports != 1 {
		t.Errorf("expected one subscription error report, got %d", reports)
	}
	if survivor != 2 {
		t.Errorf("panicking subscription aborted the flush: %d runs", survivor)
	}
}

func TestRunTrackedPanicUnwinds(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewState(map[string]any{"v": 1})

	func() {
		defer func() { _ = recover() }()
		rt.RunTracked(func() any { panic("render bug") })
	}()

	// The tracking frame must be gone: this read is top-level.
	runs := 0
	rt.CreateEffect(func() Cleanup {
		runs++
		_ = s.Get("v")
		return nil
	})
	s.Set("v", 2)
	if runs != 2 {
		t.Errorf("tracking stack corrupted after panic: %d runs", runs)
	}
}

func TestRuntimeIsolation(t *testing.T) {
	rt1 := NewRuntime()
	rt2 := NewRuntime()

	s1 := rt1.NewState(map[string]any{"v": 1})
	s2 := rt2.NewState(map[string]any{"v": 1})

	runs1, runs2 := 0, 0
	rt1.CreateEffect(func() Cleanup {
		runs1++
		_ = s1.Get("v")
		return nil
	})
	rt2.CreateEffect(func() Cleanup {
		runs2++
		_ = s2.Get("v")
		return nil
	})

	// A batch in one universe must not defer the other's notifications.
	rt1.Batch(func() {
		s1.Set("v", 2)
		s2.Set("v", 2)
		if runs2 != 2 {
			t.Errorf("write in rt2 was deferred by rt1's batch: %d runs", runs2)
		}
	})
	if runs1 != 2 {
		t.Errorf("rt1 batch did not flush: %d runs", runs1)
	}
}

func TestDefaultRuntimePackageAPI(t *testing.T) {
	s := NewState(map[string]any{"n": 1})

	runs := 0
	e := CreateEffect(func() Cleanup {
		runs++
		_ = s.Get("n")
		return nil
	})
	defer e.Dispose()

	Batch(func() {
		s.Set("n", 2)
		s.Set("n", 3)
	})
	if runs != 2 {
		t.Errorf("package-level batch misbehaved: %d runs", runs)
	}

	if got := Untracked(func() any { return s.Get("n") }); got != 3 {
		t.Errorf("expected 3, got %v", got)
	}
}
