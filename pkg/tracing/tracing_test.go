package tracing

import (
	"context"
	"testing"

	"github.com/ripple-dev/ripple/pkg/ripple"
)

func TestTxBatchesWrites(t *testing.T) {
	rt := ripple.NewRuntime()
	s := rt.NewState(map[string]any{"a": 0})

	runs := 0
	rt.CreateEffect(func() ripple.Cleanup {
		runs++
		_ = s.Get("a")
		return nil
	})

	tr := New(rt)
	tr.Tx(context.Background(), "update-a", func() {
		s.Set("a", 1)
		s.Set("a", 2)
	})

	if runs != 2 {
		t.Errorf("traced transaction did not collapse writes: %d runs", runs)
	}
	if s.GetInt("a") != 2 {
		t.Errorf("expected final value 2, got %v", s.Get("a"))
	}
}

func TestErrorHandlerForwards(t *testing.T) {
	var forwarded []string
	h := ErrorHandler(
		func() context.Context { return context.Background() },
		func(err error, errCtx string, data map[string]any) {
			forwarded = append(forwarded, errCtx)
		},
	)

	rt := ripple.NewRuntime()
	rt.Configure(ripple.Config{ErrorHandler: h})

	s := rt.NewState(map[string]any{"v": 0})
	rt.CreateEffect(func() ripple.Cleanup {
		if s.GetInt("v") > 0 {
			panic("boom")
		}
		return nil
	})
	s.Set("v", 1)

	if len(forwarded) != 1 || forwarded[0] != ripple.ContextEffect {
		t.Errorf("error not forwarded through tracing handler: %v", forwarded)
	}
}
