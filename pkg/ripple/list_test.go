package ripple

import "testing"

func TestListWrapIdempotent(t *testing.T) {
	rt := NewRuntime()
	raw := []any{1, 2, 3}

	l1 := rt.Wrap(raw)
	l2 := rt.Wrap(raw)
	if l1 != l2 {
		t.Error("wrapping the same slice twice returned different wrappers")
	}
}

func TestListAppendNotifiesStructureNotIndices(t *testing.T) {
	rt := NewRuntime()
	l := rt.NewList([]any{"a", "b"})

	lenRuns := 0
	rt.CreateEffect(func() Cleanup {
		lenRuns++
		_ = l.Len()
		return nil
	})

	idx0Runs := 0
	rt.CreateEffect(func() Cleanup {
		idx0Runs++
		_ = l.Get(0)
		return nil
	})

	l.Append("c")

	if lenRuns != 2 {
		t.Errorf("append did not notify length subscriber: %d runs", lenRuns)
	}
	if idx0Runs != 1 {
		t.Errorf("append notified an untouched index: %d runs", idx0Runs)
	}
}

func TestListSetIndexPrecision(t *testing.T) {
	rt := NewRuntime()
	l := rt.NewList([]any{10, 20, 30})

	idx1Runs, idx2Runs := 0, 0
	rt.CreateEffect(func() Cleanup {
		idx1Runs++
		_ = l.Get(1)
		return nil
	})
	rt.CreateEffect(func() Cleanup {
		idx2Runs++
		_ = l.Get(2)
		return nil
	})

	l.Set(1, 99)
	if idx1Runs != 2 {
		t.Errorf("index write missed its subscriber: %d runs", idx1Runs)
	}
	if idx2Runs != 1 {
		t.Errorf("index write notified an untouched index: %d runs", idx2Runs)
	}

	l.Set(1, 99) // no-op
	if idx1Runs != 2 {
		t.Errorf("no-op index write notified: %d runs", idx1Runs)
	}
}

func TestListPopShift(t *testing.T) {
	rt := NewRuntime()
	l := rt.NewList([]any{1, 2, 3})

	l.Pop()
	if l.Len() != 2 || l.Peek(1) != 2 {
		t.Errorf("pop failed: len=%d", l.Len())
	}

	l.Shift()
	if l.Len() != 1 || l.Peek(0) != 2 {
		t.Errorf("shift failed: len=%d first=%v", l.Len(), l.Peek(0))
	}
}

func TestListShiftNotifiesShiftedIndices(t *testing.T) {
	rt := NewRuntime()
	l := rt.NewList([]any{1, 2, 3})

	idx0Runs := 0
	rt.CreateEffect(func() Cleanup {
		idx0Runs++
		_ = l.Get(0)
		return nil
	})

	l.Shift() // index 0 now holds 2
	if idx0Runs != 2 {
		t.Errorf("shift did not notify shifted index: %d runs", idx0Runs)
	}
	if l.Peek(0) != 2 {
		t.Errorf("expected 2 at index 0, got %v", l.Peek(0))
	}
}

func TestListSplice(t *testing.T) {
	rt := NewRuntime()
	l := rt.NewList([]any{"a", "b", "c", "d"})

	l.Splice(1, 2, "x", "y", "z")

	want := []any{"a", "x", "y", "z", "d"}
	got := l.Values()
	if len(got) != len(want) {
		t.Fatalf("splice result %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestListSortReverse(t *testing.T) {
	rt := NewRuntime()
	l := rt.NewList([]any{3, 1, 2})

	lenRuns := 0
	rt.CreateEffect(func() Cleanup {
		lenRuns++
		_ = l.Len()
		return nil
	})

	l.Sort(func(a, b any) bool { return a.(int) < b.(int) })
	if l.Peek(0) != 1 || l.Peek(2) != 3 {
		t.Errorf("sort failed: %v", l.Values())
	}
	if lenRuns != 2 {
		t.Errorf("sort did not notify the structural key: %d runs", lenRuns)
	}

	l.Reverse()
	if l.Peek(0) != 3 || l.Peek(2) != 1 {
		t.Errorf("reverse failed: %v", l.Values())
	}
}

func TestListTruncate(t *testing.T) {
	rt := NewRuntime()
	l := rt.NewList([]any{1, 2, 3, 4})

	runs := 0
	rt.CreateEffect(func() Cleanup {
		runs++
		_ = l.Len()
		return nil
	})

	l.Truncate(2)
	if l.Len() != 2 {
		t.Errorf("truncate failed: len=%d", l.Len())
	}
	if runs != 2 {
		t.Errorf("truncate did not notify: %d runs", runs)
	}

	l.Truncate(10) // no-op
	if runs != 2 {
		t.Errorf("no-op truncate notified: %d runs", runs)
	}
}

func TestListNestedWrapOnDemand(t *testing.T) {
	rt := NewRuntime()
	l := rt.NewList([]any{
		map[string]any{"name": "first"},
	})

	child, ok := l.Get(0).(*State)
	if !ok {
		t.Fatal("nested map in list was not wrapped")
	}
	if l.Get(0) != child {
		t.Error("repeated element reads returned different wrappers")
	}

	runs := 0
	rt.CreateEffect(func() Cleanup {
		runs++
		item := l.Get(0).(*State)
		_ = item.Get("name")
		return nil
	})

	child.Set("name", "renamed")
	if runs != 2 {
		t.Errorf("nested write through list element missed effect: %d runs", runs)
	}
}

func TestListOutOfRangeReadTracksFutureGrowth(t *testing.T) {
	rt := NewRuntime()
	l := rt.NewList([]any{1})

	var seen []any
	rt.CreateEffect(func() Cleanup {
		seen = append(seen, l.Get(3))
		return nil
	})

	l.Append(2, 3, 4)
	if len(seen) != 2 || seen[1] != 4 {
		t.Errorf("growth past a read index did not re-run reader: %v", seen)
	}
}
