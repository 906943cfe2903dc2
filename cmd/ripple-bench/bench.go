package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"runtime/debug"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ripple-dev/ripple/pkg/ripple"
)

type profile struct {
	Name          string
	Writers       int
	Duration      time.Duration
	WPS           float64
	StateKeys     int
	ListSize      int
	ComputedDepth int
}

var profiles = map[string]profile{
	"fast": {
		Name:          "fast",
		Writers:       4,
		Duration:      5 * time.Second,
		WPS:           200,
		StateKeys:     8,
		ListSize:      20,
		ComputedDepth: 3,
	},
	"standard": {
		Name:          "standard",
		Writers:       16,
		Duration:      15 * time.Second,
		WPS:           500,
		StateKeys:     16,
		ListSize:      50,
		ComputedDepth: 5,
	},
	"stress": {
		Name:          "stress",
		Writers:       64,
		Duration:      30 * time.Second,
		WPS:           1000,
		StateKeys:     32,
		ListSize:      100,
		ComputedDepth: 10,
	},
}

type benchConfig struct {
	Profile       string
	Writers       int
	Duration      time.Duration
	WPS           float64
	StateKeys     int
	ListSize      int
	ComputedDepth int
	Shared        bool
	JSONOutput    string
}

func benchCmd() *cobra.Command {
	var (
		profileFlag string
		writersFlag int
		durFlag     string
		wpsFlag     float64
		keysFlag    int
		listFlag    int
		depthFlag   int
		sharedFlag  bool
		jsonFlag    string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a synthetic reactivity workload and report latency",
		Long: `bench spins up concurrent writer goroutines, each driving a reactive
state, list, and computed chain observed by effects. Every write is timed
end to end: the sample covers dependency notification, scheduling, memo
recomputation, and effect execution.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(profileFlag, writersFlag, durFlag, wpsFlag, keysFlag, listFlag, depthFlag, sharedFlag, jsonFlag)
			if err != nil {
				return err
			}
			return runBench(cfg)
		},
	}

	cmd.Flags().StringVar(&profileFlag, "profile", "standard", "profile: fast|standard|stress")
	cmd.Flags().IntVar(&writersFlag, "writers", -1, "number of concurrent writer goroutines")
	cmd.Flags().StringVar(&durFlag, "duration", "", "benchmark duration, e.g. 30s")
	cmd.Flags().Float64Var(&wpsFlag, "wps", -1, "target writes/sec per writer")
	cmd.Flags().IntVar(&keysFlag, "keys", -1, "state keys per writer")
	cmd.Flags().IntVar(&listFlag, "list", -1, "list size per writer")
	cmd.Flags().IntVar(&depthFlag, "depth", -1, "computed chain depth per writer")
	cmd.Flags().BoolVar(&sharedFlag, "shared", false, "share one Runtime across all writers")
	cmd.Flags().StringVar(&jsonFlag, "json", "", "JSON output path ('-' for stdout)")

	return cmd
}

func resolveConfig(profileName string, writers int, dur string, wps float64, keys, list, depth int, shared bool, jsonOut string) (benchConfig, error) {
	base, ok := profiles[profileName]
	if !ok {
		return benchConfig{}, fmt.Errorf("unknown profile %q", profileName)
	}

	cfg := benchConfig{
		Profile:       base.Name,
		Writers:       base.Writers,
		Duration:      base.Duration,
		WPS:           base.WPS,
		StateKeys:     base.StateKeys,
		ListSize:      base.ListSize,
		ComputedDepth: base.ComputedDepth,
		Shared:        shared,
		JSONOutput:    jsonOut,
	}

	if writers != -1 {
		cfg.Writers = writers
	}
	if dur != "" {
		d, err := time.ParseDuration(dur)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid --duration: %w", err)
		}
		cfg.Duration = d
	}
	if wps != -1 {
		cfg.WPS = wps
	}
	if keys != -1 {
		cfg.StateKeys = keys
	}
	if list != -1 {
		cfg.ListSize = list
	}
	if depth != -1 {
		cfg.ComputedDepth = depth
	}

	if cfg.Writers <= 0 {
		return benchConfig{}, errors.New("--writers must be > 0")
	}
	if cfg.Duration <= 0 {
		return benchConfig{}, errors.New("--duration must be > 0")
	}
	if cfg.WPS <= 0 {
		return benchConfig{}, errors.New("--wps must be > 0")
	}
	if cfg.StateKeys <= 0 {
		return benchConfig{}, errors.New("--keys must be > 0")
	}
	if cfg.ListSize < 0 {
		return benchConfig{}, errors.New("--list must be >= 0")
	}
	if cfg.ComputedDepth < 0 {
		return benchConfig{}, errors.New("--depth must be >= 0")
	}
	return cfg, nil
}

// writerWorkload is one writer's reactive graph: a state, a list, a memo
// chain reading the state, and an effect observing the chain's tail.
type writerWorkload struct {
	rt      *ripple.Runtime
	state   *ripple.State
	list    *ripple.List
	tail    *ripple.Memo[int]
	dispose ripple.Disposer
}

func newWriterWorkload(rt *ripple.Runtime, cfg benchConfig) *writerWorkload {
	raw := make(map[string]any, cfg.StateKeys)
	for i := 0; i < cfg.StateKeys; i++ {
		raw["k"+strconv.Itoa(i)] = 0
	}
	state := rt.NewState(raw)

	items := make([]any, cfg.ListSize)
	for i := range items {
		items[i] = i
	}
	list := rt.NewList(items)

	tail := ripple.NewMemo(rt, func() int {
		sum := 0
		for i := 0; i < cfg.StateKeys; i++ {
			sum += state.GetInt("k" + strconv.Itoa(i))
		}
		return sum
	})
	for d := 1; d < cfg.ComputedDepth; d++ {
		prev := tail
		tail = ripple.NewMemo(rt, func() int {
			return prev.Get() + 1
		})
	}

	effect := rt.CreateEffect(func() ripple.Cleanup {
		_ = tail.Get()
		_ = list.Len()
		return nil
	})

	return &writerWorkload{
		rt:      rt,
		state:   state,
		list:    list,
		tail:    tail,
		dispose: effect.Disposer(),
	}
}

// step performs one timed write. Writes are synchronous: the returned
// duration covers notification, memo recomputation, and effect re-run.
func (w *writerWorkload) step(seq uint64, cfg benchConfig) time.Duration {
	key := "k" + strconv.Itoa(int(seq)%cfg.StateKeys)
	start := time.Now()
	if cfg.ListSize > 0 && seq%8 == 0 {
		w.rt.Batch(func() {
			w.state.Set(key, int(seq))
			w.list.Set(int(seq)%cfg.ListSize, int(seq))
		})
	} else {
		w.state.Set(key, int(seq))
	}
	return time.Since(start)
}

func runBench(cfg benchConfig) error {
	debug.SetGCPercent(100)

	sharedRT := ripple.NewRuntime()

	samplesCh := make(chan time.Duration, cfg.Writers*4+1024)
	var samples []time.Duration
	var samplesMu sync.Mutex
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for d := range samplesCh {
			samplesMu.Lock()
			samples = append(samples, d)
			samplesMu.Unlock()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	runtimes := make([]*ripple.Runtime, cfg.Writers)
	for i := range runtimes {
		if cfg.Shared {
			runtimes[i] = sharedRT
		} else {
			runtimes[i] = ripple.NewRuntime()
		}
	}

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)

	statsBefore := sumStats(runtimes)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(cfg.Writers)
	for i := 0; i < cfg.Writers; i++ {
		rt := runtimes[i]
		go func() {
			defer wg.Done()
			w := newWriterWorkload(rt, cfg)
			defer w.dispose()

			period := time.Duration(float64(time.Second) / cfg.WPS)
			var seq uint64
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				seq++
				elapsed := w.step(seq, cfg)
				samplesCh <- elapsed

				if sleep := period - elapsed; sleep > 0 {
					timer := time.NewTimer(sleep)
					select {
					case <-ctx.Done():
						timer.Stop()
						return
					case <-timer.C:
					}
				}
			}
		}()
	}

	wg.Wait()
	close(samplesCh)
	<-collectorDone

	elapsed := time.Since(start)

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)

	statsAfter := sumStats(runtimes)

	samplesMu.Lock()
	latencies := append([]time.Duration(nil), samples...)
	samplesMu.Unlock()
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	report := buildReport(cfg, elapsed, latencies, statsBefore, statsAfter, before, after)

	writeSummary(os.Stderr, report)
	if cfg.JSONOutput != "" {
		if err := writeJSON(cfg.JSONOutput, report); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	}
	return nil
}

func sumStats(runtimes []*ripple.Runtime) ripple.Stats {
	var total ripple.Stats
	seen := map[*ripple.Runtime]bool{}
	for _, rt := range runtimes {
		if seen[rt] {
			continue
		}
		seen[rt] = true
		s := rt.Stats()
		total.Flushes += s.Flushes
		total.FlushPasses += s.FlushPasses
		total.Notifications += s.Notifications
		total.EffectRuns += s.EffectRuns
		total.Recomputes += s.Recomputes
		total.DepthExceeded += s.DepthExceeded
		total.ErrorsReported += s.ErrorsReported
	}
	return total
}

type benchReport struct {
	Version    string         `json:"version"`
	Run        runInfo        `json:"run"`
	Workload   workloadInfo   `json:"workload"`
	LatencyUS  latencyInfo    `json:"latency_us"`
	Throughput throughputInfo `json:"throughput"`
	Engine     engineInfo     `json:"engine"`
	GC         gcInfo         `json:"gc"`
}

type runInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
}

type workloadInfo struct {
	Profile       string  `json:"profile"`
	Writers       int     `json:"writers"`
	DurationMS    int64   `json:"duration_ms"`
	WPSPerWriter  float64 `json:"wps_per_writer"`
	StateKeys     int     `json:"state_keys"`
	ListSize      int     `json:"list_size"`
	ComputedDepth int     `json:"computed_depth"`
	SharedRuntime bool    `json:"shared_runtime"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type throughputInfo struct {
	WritesTotal        uint64  `json:"writes_total"`
	WritesPerSec       float64 `json:"writes_per_sec"`
	WritesPerSecWriter float64 `json:"writes_per_sec_per_writer"`
}

type engineInfo struct {
	Flushes        uint64  `json:"flushes"`
	FlushPasses    uint64  `json:"flush_passes"`
	PassesPerFlush float64 `json:"passes_per_flush"`
	Notifications  uint64  `json:"notifications"`
	EffectRuns     uint64  `json:"effect_runs"`
	Recomputes     uint64  `json:"recomputes"`
	DepthExceeded  uint64  `json:"depth_exceeded"`
	ErrorsReported uint64  `json:"errors_reported"`
}

type gcInfo struct {
	AllocMB      float64 `json:"alloc_mb"`
	HeapLiveMB   float64 `json:"heap_live_mb"`
	NumGC        uint32  `json:"num_gc"`
	PauseTotalMS float64 `json:"pause_total_ms"`
}

func buildReport(
	cfg benchConfig,
	elapsed time.Duration,
	latencies []time.Duration,
	statsBefore, statsAfter ripple.Stats,
	before, after runtime.MemStats,
) benchReport {
	writes := uint64(len(latencies))
	elapsedSeconds := math.Max(0.001, elapsed.Seconds())
	wps := float64(writes) / elapsedSeconds

	latency := latencyInfo{}
	if len(latencies) > 0 {
		latency = latencyInfo{
			Min: us(latencies[0]),
			P50: us(percentile(latencies, 0.50)),
			P95: us(percentile(latencies, 0.95)),
			P99: us(percentile(latencies, 0.99)),
			Max: us(latencies[len(latencies)-1]),
		}
	}

	flushes := statsAfter.Flushes - statsBefore.Flushes
	passes := statsAfter.FlushPasses - statsBefore.FlushPasses
	passesPerFlush := 0.0
	if flushes > 0 {
		passesPerFlush = float64(passes) / float64(flushes)
	}

	return benchReport{
		Version: "1",
		Run: runInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
		},
		Workload: workloadInfo{
			Profile:       cfg.Profile,
			Writers:       cfg.Writers,
			DurationMS:    cfg.Duration.Milliseconds(),
			WPSPerWriter:  cfg.WPS,
			StateKeys:     cfg.StateKeys,
			ListSize:      cfg.ListSize,
			ComputedDepth: cfg.ComputedDepth,
			SharedRuntime: cfg.Shared,
		},
		LatencyUS: latency,
		Throughput: throughputInfo{
			WritesTotal:        writes,
			WritesPerSec:       wps,
			WritesPerSecWriter: wps / float64(cfg.Writers),
		},
		Engine: engineInfo{
			Flushes:        flushes,
			FlushPasses:    passes,
			PassesPerFlush: passesPerFlush,
			Notifications:  statsAfter.Notifications - statsBefore.Notifications,
			EffectRuns:     statsAfter.EffectRuns - statsBefore.EffectRuns,
			Recomputes:     statsAfter.Recomputes - statsBefore.Recomputes,
			DepthExceeded:  statsAfter.DepthExceeded - statsBefore.DepthExceeded,
			ErrorsReported: statsAfter.ErrorsReported - statsBefore.ErrorsReported,
		},
		GC: gcInfo{
			AllocMB:      float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			HeapLiveMB:   float64(after.HeapAlloc) / (1024 * 1024),
			NumGC:        after.NumGC - before.NumGC,
			PauseTotalMS: float64(after.PauseTotalNs-before.PauseTotalNs) / float64(time.Millisecond),
		},
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func us(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== Ripple Reactivity Benchmark ===")
	fmt.Fprintf(w, "Profile: %s\n", report.Workload.Profile)
	fmt.Fprintf(w, "Writers: %d (shared runtime: %v)\n", report.Workload.Writers, report.Workload.SharedRuntime)
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(report.Workload.DurationMS)*time.Millisecond)
	fmt.Fprintf(w, "Target per-writer rate: %.0f writes/s\n", report.Workload.WPSPerWriter)
	fmt.Fprintf(w, "Graph: %d keys, %d list items, computed depth %d\n",
		report.Workload.StateKeys, report.Workload.ListSize, report.Workload.ComputedDepth)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total writes: %d\n", report.Throughput.WritesTotal)
	fmt.Fprintf(w, "Throughput: %.1f writes/s (%.1f per writer)\n",
		report.Throughput.WritesPerSec, report.Throughput.WritesPerSecWriter)
	fmt.Fprintln(w)

	if report.LatencyUS.Max == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
	} else {
		fmt.Fprintln(w, "Write latency (set -> flush -> effects settled):")
		fmt.Fprintf(w, "  min: %.1f us\n", report.LatencyUS.Min)
		fmt.Fprintf(w, "  p50: %.1f us\n", report.LatencyUS.P50)
		fmt.Fprintf(w, "  p95: %.1f us\n", report.LatencyUS.P95)
		fmt.Fprintf(w, "  p99: %.1f us\n", report.LatencyUS.P99)
		fmt.Fprintf(w, "  max: %.1f us\n", report.LatencyUS.Max)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Engine:")
	fmt.Fprintf(w, "  flushes:       %d (%.2f passes/flush)\n", report.Engine.Flushes, report.Engine.PassesPerFlush)
	fmt.Fprintf(w, "  notifications: %d\n", report.Engine.Notifications)
	fmt.Fprintf(w, "  effect runs:   %d\n", report.Engine.EffectRuns)
	fmt.Fprintf(w, "  recomputes:    %d\n", report.Engine.Recomputes)
	if report.Engine.DepthExceeded > 0 || report.Engine.ErrorsReported > 0 {
		fmt.Fprintf(w, "  depth trips:   %d\n", report.Engine.DepthExceeded)
		fmt.Fprintf(w, "  errors:        %d\n", report.Engine.ErrorsReported)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Go runtime / GC (process-wide):")
	fmt.Fprintf(w, "  alloc:     %.2f MB\n", report.GC.AllocMB)
	fmt.Fprintf(w, "  heap_live: %.2f MB\n", report.GC.HeapLiveMB)
	fmt.Fprintf(w, "  num_gc:    %d\n", report.GC.NumGC)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (total)\n", report.GC.PauseTotalMS)
}

func writeJSON(path string, report benchReport) error {
	var out io.Writer
	if path == "-" {
		out = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
