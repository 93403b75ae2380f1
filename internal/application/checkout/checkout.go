package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/invoice"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/cenkalti/backoff/v4"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	checkoutService  = "checkout-service"
	useCaseCheckout  = "checkout.execute"
	paymentEndpoint  = "charge"
	paymentPeerTmpl  = "payment.%s"
	outcomeSucceeded = "success"
)

var (
	ErrNotFound   = domorder.ErrNotFound
	ErrRepository = errors.New("checkout: repository failure")
)

type IDGenerator interface {
	NewID() string
}

type Clock interface {
	Now() time.Time
}

type Input struct {
	OrderID string
	Method  payment.Method
}

// Result describes a checkout that ran to a payment outcome. A declined or
// timed out payment is a Result, not an error; Outcome.Err tells them apart.
type Result struct {
	Order    *domorder.PurchaseOrder
	Outcome  payment.Outcome
	Attempts int
	// Invoice is set when the order ended up closed: always after a successful
	// payment, and after a failed one on an order the caller had closed.
	Invoice *invoice.Invoice
}

var _ application.UseCase[Input, *Result] = (*Service)(nil)

// Service pays an order's total with the chosen method and settles the order.
type Service struct {
	orders    domorder.Repository
	invoices  invoice.Repository
	ids       IDGenerator
	clock     Clock
	publisher domoutbox.Publisher
	policy    RetryPolicy
	ins       *application.Instruments
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewService(
	orders domorder.Repository,
	invoices invoice.Repository,
	ids IDGenerator,
	clock Clock,
	publisher domoutbox.Publisher,
	policy RetryPolicy,
	tel observability.Observability,
) *Service {
	return &Service{
		orders:    orders,
		invoices:  invoices,
		ids:       ids,
		clock:     clock,
		publisher: publisher,
		policy:    policy.normalized(),
		ins:       application.NewInstruments(tel, checkoutService),
		sleep:     sleepCtx,
	}
}

// settlement is what the order's writer lock produced.
type settlement struct {
	outcomes []payment.Outcome
	closed   bool
	invoice  *invoice.Invoice
}

// Execute holds the order's writer lock while it pays, so the charged total
// cannot change under it. Every attempt is recorded on the order.
func (s *Service) Execute(ctx context.Context, in Input) (_ *Result, err error) {
	ctx, run := s.ins.Start(ctx, useCaseCheckout, "Checkout",
		attribute.String("order.id", in.OrderID),
	)
	defer func() { run.End(err) }()
	run.Annotate(observability.F("order_id", in.OrderID))

	if in.OrderID == "" {
		run.Fail("ID_REQUIRED")
		return nil, application.Validationf("order id is required")
	}
	if in.Method == nil {
		run.Fail("METHOD_REQUIRED")
		return nil, application.Validationf("payment method is required")
	}
	if err := run.CheckContext(ctx); err != nil {
		return nil, err
	}
	run.Span().SetAttributes(attribute.String("payment.method", string(in.Method.Kind())))

	var st settlement
	order, uerr := s.orders.Update(ctx, in.OrderID, func(o *domorder.PurchaseOrder) error {
		st = settlement{}
		if o.Paid() {
			return domorder.ErrAlreadyPaid
		}
		if o.IsEmpty() {
			return domorder.ErrEmptyOrder
		}

		st.outcomes = s.pay(ctx, run, in.Method, o.Total())
		for _, outcome := range st.outcomes {
			o.RecordPayment(outcome)
		}
		last := st.outcomes[len(st.outcomes)-1]

		if last.Succeeded() && !o.IsClosed() {
			if err := o.Close(s.clock.Now()); err != nil {
				return err
			}
			st.closed = true
		}
		if !o.IsClosed() {
			return nil
		}

		inv, err := invoice.New(s.ids.NewID(), o, last, s.clock.Now())
		if err != nil {
			return err
		}
		st.invoice = inv
		return nil
	})
	if uerr != nil {
		run.Fail(statusFor(uerr))
		return nil, wrapRepositoryError(uerr)
	}

	last := st.outcomes[len(st.outcomes)-1]
	res := &Result{Order: order, Outcome: last, Attempts: len(st.outcomes), Invoice: st.invoice}

	if st.invoice != nil {
		if serr := s.invoices.Save(ctx, st.invoice); serr != nil {
			run.Fail("INVOICE_SAVE_FAILED")
			return nil, fmt.Errorf("%w: %w", ErrRepository, serr)
		}
	}

	s.publish(ctx, run, in.OrderID, order, st)

	run.Annotate(
		observability.F("attempts", res.Attempts),
		observability.F("payment_status", last.Status()),
		observability.F("amount", last.Amount),
	)
	if !last.Succeeded() {
		run.Status("PAYMENT_" + string(last.Kind))
		run.Annotate(observability.F("failure_kind", string(last.Kind)))
	}
	if st.invoice != nil {
		run.Annotate(observability.F("invoice_id", st.invoice.ID()))
	}
	return res, nil
}

// pay charges amount up to MaxAttempts times, each attempt under its own
// timeout. Only retryable failures are retried.
func (s *Service) pay(ctx context.Context, run *application.Run, method payment.Method, amount int64) []payment.Outcome {
	peer := fmt.Sprintf(paymentPeerTmpl, method.Kind())
	logger := run.Logger()
	var outcomes []payment.Outcome
	schedule := s.policy.schedule()

	for attempt := 1; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.policy.AttemptTimeout)
		start := time.Now()
		outcome := method.Pay(attemptCtx, amount)
		cancel()

		result := outcomeSucceeded
		if !outcome.Succeeded() {
			result = string(outcome.Kind)
		}
		s.ins.External(peer, paymentEndpoint, result, time.Since(start))
		run.Span().AddEvent("payment.attempt", trace.WithAttributes(
			attribute.Int("payment.attempt", attempt),
			attribute.String("payment.result", result),
		))
		outcomes = append(outcomes, outcome)

		if outcome.Succeeded() || !outcome.Retryable() {
			return outcomes
		}
		wait := schedule.NextBackOff()
		if wait == backoff.Stop {
			return outcomes
		}

		logger.Warn("payment_attempt_failed",
			observability.F("attempt", attempt),
			observability.F("failure_kind", string(outcome.Kind)),
			observability.F("error", outcome.Error),
			observability.F("retry_in_seconds", wait.Seconds()),
		)
		if err := s.sleep(ctx, wait); err != nil {
			return outcomes
		}
	}
}

// publish announces every attempt, then the close and the invoice. Failures
// are logged and counted but do not undo the settlement.
func (s *Service) publish(ctx context.Context, run *application.Run, orderID string, order *domorder.PurchaseOrder, st settlement) {
	events := make([]domoutbox.Event, 0, len(st.outcomes)+2)
	for _, outcome := range st.outcomes {
		events = append(events, payment.NewAttemptEvent(orderID, outcome))
	}
	if st.closed {
		events = append(events, domorder.NewOrderClosedEvent(order))
	}
	if st.invoice != nil {
		events = append(events, invoice.NewInvoiceIssuedEvent(st.invoice))
	}

	for _, e := range events {
		if err := s.ins.Publish(ctx, s.publisher, e); err != nil {
			run.Annotate(observability.F("event_publish_error", err.Error()))
		}
	}
}

func statusFor(err error) string {
	switch {
	case errors.Is(err, domorder.ErrNotFound):
		return "ORDER_NOT_FOUND"
	case errors.Is(err, domorder.ErrAlreadyPaid):
		return "ORDER_ALREADY_PAID"
	case errors.Is(err, domorder.ErrEmptyOrder):
		return "ORDER_EMPTY"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	default:
		return "SETTLEMENT_FAILED"
	}
}

func wrapRepositoryError(err error) error {
	switch {
	case errors.Is(err, domorder.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, domorder.ErrAlreadyPaid),
		errors.Is(err, domorder.ErrEmptyOrder),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}
