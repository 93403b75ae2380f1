// Package workerpresentation prepares the context an event handler runs in,
// the background counterpart of the HTTP observability middleware.
package workerpresentation

import (
	"context"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Delivery identifies one event handed to its handlers.
type Delivery struct {
	EventID   string
	EventName string
	// Span is the publisher's span, empty when the event was published outside a trace.
	Span trace.SpanContext
}

// WithEventContext parents ctx on the publisher's span and stores a logger
// tagged with the event and trace identifiers.
func WithEventContext(ctx context.Context, base observability.Logger, d Delivery) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}
	if d.Span.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, d.Span)
	}

	eventID := d.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}
	fields := []observability.Field{
		observability.F("event", d.EventName),
		observability.F("event_id", eventID),
	}
	if d.Span.HasTraceID() {
		fields = append(fields, observability.F("trace_id", d.Span.TraceID().String()))
	}
	if d.Span.HasSpanID() {
		fields = append(fields, observability.F("span_id", d.Span.SpanID().String()))
	}
	return logctx.With(ctx, base.With(fields...))
}
