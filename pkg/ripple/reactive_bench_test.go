package ripple

import "testing"

func BenchmarkStateRead(b *testing.B) {
	rt := NewRuntime()
	s := rt.NewState(map[string]any{"a": 1})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Get("a")
	}
}

func BenchmarkStateWriteNoSubscribers(b *testing.B) {
	rt := NewRuntime()
	s := rt.NewState(map[string]any{"a": 0})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Set("a", i)
	}
}

func BenchmarkStateWriteOneEffect(b *testing.B) {
	rt := NewRuntime()
	s := rt.NewState(map[string]any{"a": 0})
	rt.CreateEffect(func() Cleanup {
		_ = s.Get("a")
		return nil
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Set("a", i)
	}
}

func BenchmarkRefReadTracked(b *testing.B) {
	rt := NewRuntime()
	v := NewRef(rt, 0)
	sink := 0

	rt.CreateEffect(func() Cleanup {
		sink = v.Get()
		return nil
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v.Set(i)
	}
	_ = sink
}

func BenchmarkBatchedWrites(b *testing.B) {
	rt := NewRuntime()
	s := rt.NewState(map[string]any{"a": 0, "b": 0})
	rt.CreateEffect(func() Cleanup {
		_ = s.Get("a")
		_ = s.Get("b")
		return nil
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rt.Batch(func() {
			s.Set("a", i)
			s.Set("b", i)
		})
	}
}

func BenchmarkComputedCachedRead(b *testing.B) {
	rt := NewRuntime()
	s := rt.NewState(map[string]any{"a": 1, "b": 2})
	s.Computed("sum", func() any { return s.GetInt("a") + s.GetInt("b") })
	_ = s.Get("sum")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Get("sum")
	}
}
