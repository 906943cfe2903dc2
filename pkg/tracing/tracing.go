// Package tracing integrates ripple with OpenTelemetry: named transactions
// wrap a batch in a span carrying scheduler attributes, and an error-handler
// adaptor records recovered engine errors on the active span.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ripple-dev/ripple/pkg/ripple"
)

// Default tracer name for ripple instrumentation.
const defaultTracerName = "ripple"

// Config configures the tracing integration.
type Config struct {
	// TracerName is the name of the tracer (default: "ripple").
	TracerName string

	// AttributeExtractor adds custom attributes to every transaction span.
	AttributeExtractor func() []attribute.KeyValue

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// Option configures the tracing integration.
type Option func(*Config)

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(fn func() []attribute.KeyValue) Option {
	return func(c *Config) {
		c.AttributeExtractor = fn
	}
}

// Tracer wraps a Runtime with span-producing transaction helpers.
type Tracer struct {
	rt  *ripple.Runtime
	cfg Config
}

// New creates a Tracer for the Runtime. A nil rt means the default Runtime.
func New(rt *ripple.Runtime, opts ...Option) *Tracer {
	if rt == nil {
		rt = ripple.DefaultRuntime()
	}
	cfg := Config{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.tracer = otel.Tracer(cfg.TracerName)
	return &Tracer{rt: rt, cfg: cfg}
}

// Tx runs fn as a named, traced transaction: all writes inside fn batch
// into a single flush, and the span records how much scheduler work the
// transaction caused.
func (t *Tracer) Tx(ctx context.Context, name string, fn func()) {
	_, span := t.cfg.tracer.Start(ctx, "ripple.tx "+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("ripple.tx", name)),
	)
	defer span.End()

	before := t.rt.Stats()
	t.rt.Batch(fn)
	after := t.rt.Stats()

	span.SetAttributes(
		attribute.Int64("ripple.flush_passes", int64(after.FlushPasses-before.FlushPasses)),
		attribute.Int64("ripple.notifications", int64(after.Notifications-before.Notifications)),
		attribute.Int64("ripple.effect_runs", int64(after.EffectRuns-before.EffectRuns)),
	)
	if extract := t.cfg.AttributeExtractor; extract != nil {
		span.SetAttributes(extract()...)
	}
	if errs := after.ErrorsReported - before.ErrorsReported; errs > 0 {
		span.SetStatus(codes.Error, "engine errors during transaction")
		span.SetAttributes(attribute.Int64("ripple.errors", int64(errs)))
	}
}

// ErrorHandler returns a ripple.ErrorHandler that records engine errors on
// the span active in ctxFn's context, then forwards to next (which may be
// nil). Install it with Runtime.Configure.
func ErrorHandler(ctxFn func() context.Context, next ripple.ErrorHandler) ripple.ErrorHandler {
	return func(err error, errCtx string, data map[string]any) {
		if ctxFn != nil {
			if span := trace.SpanFromContext(ctxFn()); span.IsRecording() {
				span.RecordError(err, trace.WithAttributes(
					attribute.String("ripple.context", errCtx),
				))
			}
		}
		if next != nil {
			next(err, errCtx, data)
		}
	}
}
