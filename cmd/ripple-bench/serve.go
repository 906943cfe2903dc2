package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ripple-dev/ripple/pkg/devtools"
	"github.com/ripple-dev/ripple/pkg/ripple"
)

func serveCmd() *cobra.Command {
	var (
		addr     string
		interval time.Duration
		demo     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host the development inspector",
		Long: `serve starts the inspector HTTP server for a ripple Runtime:

  GET /stats   engine counters as JSON
  GET /metrics Prometheus exposition
  GET /events  WebSocket stream of scheduler events

With --demo a background workload keeps the event stream busy so the
inspector has something to show.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, interval, demo)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8929", "listen address")
	cmd.Flags().DurationVar(&interval, "interval", 250*time.Millisecond, "demo write interval")
	cmd.Flags().BoolVar(&demo, "demo", true, "run a demo workload against the runtime")

	return cmd
}

func runServe(addr string, interval time.Duration, demo bool) error {
	rt := ripple.NewRuntime()
	inspector := devtools.NewServer(rt)
	defer inspector.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if demo {
		go runDemoWorkload(ctx, rt, interval)
	}

	httpServer := &http.Server{
		Addr:    addr,
		Handler: inspector.Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	fmt.Printf("inspector listening on http://%s\n", addr)
	fmt.Printf("  stats:   http://%s/stats\n", addr)
	fmt.Printf("  metrics: http://%s/metrics\n", addr)
	fmt.Printf("  events:  ws://%s/events\n", addr)

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// runDemoWorkload drives a small reactive graph so the inspector's event
// stream and metrics show live activity.
func runDemoWorkload(ctx context.Context, rt *ripple.Runtime, interval time.Duration) {
	state := rt.NewState(map[string]any{"tick": 0, "phase": "even"})
	doubled := ripple.NewMemo(rt, func() int {
		return state.GetInt("tick") * 2
	})
	effect := rt.CreateEffect(func() ripple.Cleanup {
		_ = doubled.Get()
		_ = state.GetString("phase")
		return nil
	})
	defer effect.Dispose()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick++
			rt.Batch(func() {
				state.Set("tick", tick)
				if tick%2 == 0 {
					state.Set("phase", "even")
				} else {
					state.Set("phase", "odd")
				}
			})
		}
	}
}
