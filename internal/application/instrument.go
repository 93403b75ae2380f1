package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	spanPrefix      = "UC."
	publishPeer     = "outbox"
	publishTimeout  = 300 * time.Millisecond
	outcomeSuccess  = "success"
	outcomeError    = "error"
	statusOK        = "OK"
	statusCancelled = "CONTEXT_CANCELED"
)

// ErrValidation marks input rejected before any state was touched.
var ErrValidation = errors.New("validation")

func Validation(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Instruments bundles the tracer, base logger and RED metrics every use case
// of one service reports on.
type Instruments struct {
	tel observability.Observability
	log observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewInstruments(tel observability.Observability, service string) *Instruments {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &Instruments{
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", service)),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

func (i *Instruments) Logger() observability.Logger { return i.log }

// Run tracks one use case execution from Start to End.
type Run struct {
	ins     *Instruments
	ctx     context.Context
	span    trace.Span
	logger  observability.Logger
	useCase string
	start   time.Time

	outcome string
	status  string
	fields  []observability.Field
}

// Start opens the span "UC.<name>" and binds a use-case logger to the context.
func (i *Instruments) Start(ctx context.Context, useCase, name string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := i.tel.Tracer().Start(ctx, spanPrefix+name, attrs...)
	ctx, logger := logctx.Enrich(ctx, i.log, observability.F("use_case", useCase))
	return ctx, &Run{
		ins:     i,
		ctx:     ctx,
		span:    span,
		logger:  logger,
		useCase: useCase,
		start:   time.Now(),
		outcome: outcomeSuccess,
		status:  statusOK,
	}
}

func (r *Run) Span() trace.Span { return r.span }

func (r *Run) Logger() observability.Logger { return r.logger }

// Fail marks the run as failed with a machine-readable status.
func (r *Run) Fail(status string) {
	r.outcome, r.status = outcomeError, status
}

// Status overrides the status text without changing the outcome.
func (r *Run) Status(status string) { r.status = status }

// Annotate adds fields to the use_case_done line.
func (r *Run) Annotate(fields ...observability.Field) {
	r.fields = append(r.fields, fields...)
}

// CheckContext fails the run if ctx is already done.
func (r *Run) CheckContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		r.Fail(statusCancelled)
		return err
	}
	return nil
}

// End closes the span, records RED metrics and writes the use_case_done line.
// An error without a prior Fail is reported as INTERNAL.
func (r *Run) End(err error) {
	if err != nil && r.outcome != outcomeError {
		r.Fail("INTERNAL")
	}
	lat := time.Since(r.start).Seconds()

	if err != nil {
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, r.status)
	} else {
		r.span.SetStatus(codes.Ok, r.status)
	}
	r.span.End()

	r.ins.reqCounter.Add(1,
		observability.L("use_case", r.useCase),
		observability.L("outcome", r.outcome),
	)
	r.ins.durHistogram.Observe(lat,
		observability.L("use_case", r.useCase),
	)

	fields := []observability.Field{
		observability.F("outcome", r.outcome),
		observability.F("status", r.status),
		observability.F("latency_seconds", lat),
	}
	if sc := trace.SpanContextFromContext(r.ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	fields = append(fields, r.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}

	r.logger.Info("use_case_done", fields...)
}

// External records one call to a collaborator outside the process boundary.
func (i *Instruments) External(peer, endpoint, outcome string, took time.Duration) {
	i.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	i.extHistogram.Observe(took.Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
}

// Publish sends e with a short deadline and reports it as an external call.
// A nil publisher is a no-op.
func (i *Instruments) Publish(ctx context.Context, publisher domoutbox.Publisher, e domoutbox.Event) error {
	if publisher == nil || e == nil {
		return nil
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	start := time.Now()
	outcome := outcomeSuccess
	err := publisher.Publish(pubCtx, e)
	switch {
	case err != nil && pubCtx.Err() != nil:
		outcome = "canceled"
	case err != nil:
		outcome = outcomeError
	}
	i.External(publishPeer, e.EventName(), outcome, time.Since(start))

	if err != nil {
		logctx.FromOr(ctx, i.log).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
	return err
}
