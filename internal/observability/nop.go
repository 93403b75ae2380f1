package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// nop satisfies every port in this package and drops whatever it is given.
// Its tracer keeps the span already on the context so trace ids still flow.
type nop struct{}

func (nop) Tracer() Tracer   { return nop{} }
func (nop) Logger() Logger   { return nop{} }
func (nop) Metrics() Metrics { return nop{} }

func (nop) Start(ctx context.Context, _ string, _ ...attribute.KeyValue) (context.Context, trace.Span) {
	return ctx, trace.SpanFromContext(ctx)
}

func (nop) With(...Field) Logger   { return nop{} }
func (nop) Debug(string, ...Field) {}
func (nop) Info(string, ...Field)  {}
func (nop) Warn(string, ...Field)  {}
func (nop) Error(string, ...Field) {}

func (nop) Counter(MetricKey) Counter     { return nop{} }
func (nop) Histogram(MetricKey) Histogram { return nop{} }
func (nop) Add(float64, ...Label)         {}
func (nop) Observe(float64, ...Label)     {}

// Nop returns an Observability that records nothing.
func Nop() Observability { return nop{} }

func NopLogger() Logger       { return nop{} }
func NopTracer() Tracer       { return nop{} }
func NopMetrics() Metrics     { return nop{} }
func NopCounter() Counter     { return nop{} }
func NopHistogram() Histogram { return nop{} }
