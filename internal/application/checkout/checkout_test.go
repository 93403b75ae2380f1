package checkout

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/customer"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/invoice"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/clock"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/payment/gateway"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("inv-%d", s.n)
}

type recordingPublisher struct {
	mu    sync.Mutex
	names []string
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names = append(p.names, e.EventName())
	return nil
}

// scriptedMethod returns the queued outcomes in order and repeats the last.
type scriptedMethod struct {
	mu      sync.Mutex
	kinds   []payment.FailureKind
	amounts []int64
}

func (m *scriptedMethod) Kind() payment.MethodKind { return payment.MethodCreditCard }

func (m *scriptedMethod) Pay(_ context.Context, amount int64) payment.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.amounts = append(m.amounts, amount)
	kind := m.kinds[0]
	if len(m.kinds) > 1 {
		m.kinds = m.kinds[1:]
	}
	if kind == payment.FailureNone {
		return payment.Succeeded(payment.MethodCreditCard, amount, "USD", now, "ch_test")
	}
	return payment.Failed(payment.MethodCreditCard, kind, "", "USD", now)
}

func (m *scriptedMethod) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.amounts)
}

type fixture struct {
	svc       *Service
	orders    *memory.OrderRepository
	invoices  *memory.InvoiceRepository
	publisher *recordingPublisher
	waits     []time.Duration
}

func newFixture(t *testing.T, policy RetryPolicy) *fixture {
	t.Helper()
	f := &fixture{
		orders:    memory.NewOrderRepository(),
		invoices:  memory.NewInvoiceRepository(),
		publisher: &recordingPublisher{},
	}
	f.svc = NewService(f.orders, f.invoices, &seqIDs{}, clock.NewFixed(now), f.publisher, policy, observability.Nop())
	f.svc.sleep = func(_ context.Context, d time.Duration) error {
		f.waits = append(f.waits, d)
		return nil
	}
	return f
}

// seedOrder stores the A(35)×2 + B(29)×1 order, optionally closed.
func (f *fixture) seedOrder(t *testing.T, id string, closed bool) {
	t.Helper()
	addr := customer.Address{Line: "1 Main St", PostalCode: "10001", City: "New York", Country: "US", State: "NY"}
	billing := customer.Address{Line: "9 Side Rd", PostalCode: "94105", City: "San Francisco", Country: "US", State: "CA"}
	c, err := customer.New("Ada", "Lovelace", "ada@example.com", addr, billing)
	require.NoError(t, err)
	o, err := domorder.New(id, c, now)
	require.NoError(t, err)

	a, err := catalog.NewProduct("a", "Widget", "", catalog.CategoryPhysical, 35)
	require.NoError(t, err)
	b, err := catalog.NewProduct("b", "Manual", "", catalog.CategoryBook, 29)
	require.NoError(t, err)
	require.NoError(t, o.AddItem(a, 2, now))
	require.NoError(t, o.AddItem(b, 1, now))
	if closed {
		require.NoError(t, o.Close(now))
	}
	require.NoError(t, f.orders.Insert(context.Background(), o))
}

func testPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond, MaxDelay: 15 * time.Millisecond, Multiplier: 2, AttemptTimeout: time.Second}
}

func validCard() payment.Card {
	return payment.Card{Holder: "Ada Lovelace", Number: "4242424242424242", ExpMonth: 12, ExpYear: 2028, CVV: "123"}
}

func TestExecute_PaysClosedOrderAndIssuesInvoice(t *testing.T) {
	f := newFixture(t, testPolicy())
	f.seedOrder(t, "o-1", true)
	methods := NewMethods(gateway.NewSimulated(), "USD", clock.NewFixed(now))

	res, err := f.svc.Execute(context.Background(), Input{OrderID: "o-1", Method: methods.CreditCard(validCard())})
	require.NoError(t, err)

	assert.True(t, res.Outcome.Succeeded())
	assert.Equal(t, int64(99), res.Outcome.Amount)
	assert.Empty(t, res.Outcome.Error)
	assert.Equal(t, 1, res.Attempts)
	require.NotNil(t, res.Invoice)
	assert.Equal(t, "New York", res.Invoice.ShippingAddress().City)
	assert.Equal(t, "San Francisco", res.Invoice.BillingAddress().City)
	assert.True(t, res.Invoice.Paid())

	stored, err := f.invoices.Get(context.Background(), res.Invoice.ID())
	require.NoError(t, err)
	assert.Equal(t, "o-1", stored.OrderID())

	o, err := f.orders.Get(context.Background(), "o-1")
	require.NoError(t, err)
	assert.True(t, o.Paid())
	assert.Equal(t, []string{"payment.succeeded", "invoice.issued"}, f.publisher.names)
}

func TestExecute_ClosesOpenOrderOnSuccess(t *testing.T) {
	f := newFixture(t, testPolicy())
	f.seedOrder(t, "o-1", false)
	m := &scriptedMethod{kinds: []payment.FailureKind{payment.FailureNone}}

	res, err := f.svc.Execute(context.Background(), Input{OrderID: "o-1", Method: m})
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusClosed, res.Order.Status())
	assert.Equal(t, []int64{99}, m.amounts)
	require.NotNil(t, res.Invoice)
	assert.Equal(t, []string{"payment.succeeded", "order.closed", "invoice.issued"}, f.publisher.names)

	_, err = f.svc.Execute(context.Background(), Input{OrderID: "o-1", Method: m})
	assert.ErrorIs(t, err, domorder.ErrAlreadyPaid)
	assert.Equal(t, 1, m.calls())
}

func TestExecute_ExpiredCardLeavesOrderOpen(t *testing.T) {
	f := newFixture(t, testPolicy())
	f.seedOrder(t, "o-1", false)
	card := validCard()
	card.ExpMonth, card.ExpYear = 9, 2026
	methods := NewMethods(gateway.NewSimulated(), "USD", clock.NewFixed(now))

	res, err := f.svc.Execute(context.Background(), Input{OrderID: "o-1", Method: methods.CreditCard(card)})
	require.NoError(t, err)

	assert.Zero(t, res.Outcome.Amount)
	assert.ErrorIs(t, res.Outcome.Err(), payment.ErrCardInvalid)
	assert.False(t, res.Outcome.Retryable())
	assert.Equal(t, 1, res.Attempts)
	assert.Nil(t, res.Invoice)

	o, err := f.orders.Get(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusOpen, o.Status())
	assert.Len(t, o.Payments(), 1)
	assert.Empty(t, f.waits)
}

func TestExecute_RetriesTransientFailures(t *testing.T) {
	f := newFixture(t, testPolicy())
	f.seedOrder(t, "o-1", false)
	m := &scriptedMethod{kinds: []payment.FailureKind{payment.FailureTimeout, payment.FailureGatewayUnavailable, payment.FailureNone}}

	res, err := f.svc.Execute(context.Background(), Input{OrderID: "o-1", Method: m})
	require.NoError(t, err)

	assert.True(t, res.Outcome.Succeeded())
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 15 * time.Millisecond}, f.waits)
	assert.Len(t, res.Order.Payments(), 3)
	assert.Equal(t, []string{"payment.failed", "payment.failed", "payment.succeeded", "order.closed", "invoice.issued"}, f.publisher.names)
}

func TestExecute_GivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t, testPolicy())
	f.seedOrder(t, "o-1", false)
	m := &scriptedMethod{kinds: []payment.FailureKind{payment.FailureTimeout}}

	res, err := f.svc.Execute(context.Background(), Input{OrderID: "o-1", Method: m})
	require.NoError(t, err)

	assert.Equal(t, 3, m.calls())
	assert.True(t, res.Outcome.Retryable())
	assert.ErrorIs(t, res.Outcome.Err(), payment.ErrPaymentTimeout)
	assert.Equal(t, domorder.StatusOpen, res.Order.Status())
	assert.Nil(t, res.Invoice)
}

func TestExecute_TerminalFailureIsNotRetried(t *testing.T) {
	f := newFixture(t, testPolicy())
	f.seedOrder(t, "o-1", true)
	m := &scriptedMethod{kinds: []payment.FailureKind{payment.FailureDeclined, payment.FailureNone}}

	res, err := f.svc.Execute(context.Background(), Input{OrderID: "o-1", Method: m})
	require.NoError(t, err)

	assert.Equal(t, 1, m.calls())
	assert.ErrorIs(t, res.Outcome.Err(), payment.ErrPaymentDeclined)
	require.NotNil(t, res.Invoice, "a closed order gets an invoice documenting the failure")
	assert.False(t, res.Invoice.Paid())

	list, err := f.invoices.ForOrder(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestExecute_GatewayTimeoutIsRetryable(t *testing.T) {
	policy := testPolicy()
	policy.MaxAttempts = 2
	policy.AttemptTimeout = 10 * time.Millisecond
	f := newFixture(t, policy)
	f.seedOrder(t, "o-1", false)
	methods := NewMethods(gateway.NewSimulated(gateway.WithLatency(time.Second)), "USD", clock.NewFixed(now))

	res, err := f.svc.Execute(context.Background(), Input{OrderID: "o-1", Method: methods.CreditCard(validCard())})
	require.NoError(t, err)

	assert.Equal(t, payment.FailureTimeout, res.Outcome.Kind)
	assert.True(t, res.Outcome.Retryable())
	assert.Equal(t, 2, res.Attempts)
	assert.Zero(t, res.Outcome.Amount)
}

func TestExecute_Rejections(t *testing.T) {
	f := newFixture(t, testPolicy())
	m := &scriptedMethod{kinds: []payment.FailureKind{payment.FailureNone}}

	_, err := f.svc.Execute(context.Background(), Input{OrderID: "missing", Method: m})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Execute(context.Background(), Input{Method: m})
	assert.ErrorIs(t, err, application.ErrValidation)

	_, err = f.svc.Execute(context.Background(), Input{OrderID: "o-1"})
	assert.ErrorIs(t, err, application.ErrValidation)

	addr := customer.Address{Line: "1 Main St", PostalCode: "10001", City: "New York", Country: "US", State: "NY"}
	c, err := customer.New("Ada", "Lovelace", "ada@example.com", addr, addr)
	require.NoError(t, err)
	empty, err := domorder.New("empty", c, now)
	require.NoError(t, err)
	require.NoError(t, f.orders.Insert(context.Background(), empty))

	_, err = f.svc.Execute(context.Background(), Input{OrderID: "empty", Method: m})
	assert.ErrorIs(t, err, domorder.ErrEmptyOrder)
	assert.Zero(t, m.calls())
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 3}
	assert.Equal(t, 100*time.Millisecond, p.delay(1))
	assert.Equal(t, 300*time.Millisecond, p.delay(2))
	assert.Equal(t, 900*time.Millisecond, p.delay(3))
	assert.Equal(t, time.Second, p.delay(4))
}

func TestRetryPolicy_JitterStaysInBand(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2, Jitter: 0.5}
	for range 20 {
		d := p.delay(1)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestRetryPolicy_SingleAttemptNeverWaits(t *testing.T) {
	s := RetryPolicy{MaxAttempts: 1, BaseDelay: time.Second}.schedule()
	assert.Equal(t, backoff.Stop, s.NextBackOff())
}

func TestSleepCtx(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepCtx(context.Background(), time.Millisecond))
}

var _ invoice.Repository = (*memory.InvoiceRepository)(nil)
