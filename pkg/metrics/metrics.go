// Package metrics exposes a ripple Runtime's engine counters as Prometheus
// metrics. The collector reads Runtime.Stats() on scrape, so instrumenting
// a Runtime adds no work to the reactive hot path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ripple-dev/ripple/pkg/ripple"
)

// Config configures the Prometheus collector.
type Config struct {
	// Namespace is the metrics namespace (default: "ripple").
	Namespace string

	// Subsystem is the metrics subsystem (default: "engine").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels
}

// Option configures the Prometheus collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "ripple",
		Subsystem: "engine",
	}
}

// Collector is a prometheus.Collector over a Runtime's counters.
type Collector struct {
	rt *ripple.Runtime

	flushes        *prometheus.Desc
	flushPasses    *prometheus.Desc
	notifications  *prometheus.Desc
	effectRuns     *prometheus.Desc
	recomputes     *prometheus.Desc
	depthExceeded  *prometheus.Desc
	errorsReported *prometheus.Desc
	pending        *prometheus.Desc
	pendingHigh    *prometheus.Desc
}

// NewCollector creates a collector for the Runtime. Register it with a
// prometheus.Registerer to expose the metrics:
//
//	prometheus.MustRegister(metrics.NewCollector(rt))
func NewCollector(rt *ripple.Runtime, opts ...Option) *Collector {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	name := func(n string) string {
		return prometheus.BuildFQName(cfg.Namespace, cfg.Subsystem, n)
	}

	return &Collector{
		rt: rt,
		flushes: prometheus.NewDesc(name("flushes_total"),
			"Completed flush cycles.", nil, cfg.ConstLabels),
		flushPasses: prometheus.NewDesc(name("flush_passes_total"),
			"Individual flush passes, including cascade passes.", nil, cfg.ConstLabels),
		notifications: prometheus.NewDesc(name("notifications_total"),
			"Listener invocations.", nil, cfg.ConstLabels),
		effectRuns: prometheus.NewDesc(name("effect_runs_total"),
			"Effect executions, including initial runs.", nil, cfg.ConstLabels),
		recomputes: prometheus.NewDesc(name("recomputes_total"),
			"Computed-value recomputations.", nil, cfg.ConstLabels),
		depthExceeded: prometheus.NewDesc(name("depth_exceeded_total"),
			"Circular evaluation chains broken by the depth guard.", nil, cfg.ConstLabels),
		errorsReported: prometheus.NewDesc(name("errors_reported_total"),
			"Errors routed to the error handler.", nil, cfg.ConstLabels),
		pending: prometheus.NewDesc(name("pending_keys"),
			"Keys currently queued for the next flush.", nil, cfg.ConstLabels),
		pendingHigh: prometheus.NewDesc(name("pending_keys_high_water"),
			"Largest pending-queue length observed.", nil, cfg.ConstLabels),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.flushes
	ch <- c.flushPasses
	ch <- c.notifications
	ch <- c.effectRuns
	ch <- c.recomputes
	ch <- c.depthExceeded
	ch <- c.errorsReported
	ch <- c.pending
	ch <- c.pendingHigh
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.rt.Stats()

	counter := func(desc *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v))
	}
	counter(c.flushes, s.Flushes)
	counter(c.flushPasses, s.FlushPasses)
	counter(c.notifications, s.Notifications)
	counter(c.effectRuns, s.EffectRuns)
	counter(c.recomputes, s.Recomputes)
	counter(c.depthExceeded, s.DepthExceeded)
	counter(c.errorsReported, s.ErrorsReported)

	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(s.Pending))
	ch <- prometheus.MustNewConstMetric(c.pendingHigh, prometheus.GaugeValue, float64(s.PendingHighWater))
}
