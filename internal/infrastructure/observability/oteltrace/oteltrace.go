package oteltrace

import (
	"context"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultScope = "minishop-checkout"

type tracer struct{ t trace.Tracer }

// New returns a tracer named scope on the global TracerProvider. Spans stay
// non-recording until otel.SetTracerProvider installs one with an exporter.
func New(scope string) observability.Tracer {
	return NewWithProvider(otel.GetTracerProvider(), scope)
}

// NewWithProvider is New for an explicit provider; tests pass a noop one.
func NewWithProvider(tp trace.TracerProvider, scope string) observability.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if scope == "" {
		scope = defaultScope
	}
	return &tracer{t: tp.Tracer(scope)}
}

// Start opens an internal span; use case and event spans never cross the
// process boundary themselves.
func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}
