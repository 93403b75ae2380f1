package payment

import (
	"context"
	"sort"
	"sync"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	dompayment "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

const paymentWorker = "payment_worker"

// Worker listens to payment attempt events and keeps a per-order ledger of
// them. Orders whose latest attempt failed are candidates for dunning.
type Worker struct {
	subscriber domoutbox.Subscriber

	mu      sync.RWMutex
	ledger  map[string][]dompayment.Outcome
	settled map[string]bool

	log      observability.Logger
	outcomes observability.Counter // payment_outcomes_total{method,kind}
}

func NewWorker(subscriber domoutbox.Subscriber, tel observability.Observability) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		subscriber: subscriber,
		ledger:     make(map[string][]dompayment.Outcome),
		settled:    make(map[string]bool),
		log:        tel.Logger().With(observability.F("component", paymentWorker)),
		outcomes:   tel.Metrics().Counter(observability.MPaymentOutcomes),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil {
		return
	}
	w.subscriber.Subscribe(dompayment.PaymentSucceededEvent{}.EventName(), w.handleAttempt)
	w.subscriber.Subscribe(dompayment.PaymentFailedEvent{}.EventName(), w.handleAttempt)
}

func (w *Worker) handleAttempt(ctx context.Context, e domoutbox.Event) error {
	logger := logctx.FromOr(ctx, w.log).With(
		observability.F("event", e.EventName()),
	)

	var (
		orderID string
		outcome dompayment.Outcome
	)
	switch evt := e.(type) {
	case dompayment.PaymentSucceededEvent:
		orderID, outcome = evt.OrderID, evt.Outcome
	case dompayment.PaymentFailedEvent:
		orderID, outcome = evt.OrderID, evt.Outcome
	default:
		return nil
	}

	w.record(orderID, outcome)

	kind := string(outcome.Kind)
	if outcome.Succeeded() {
		kind = "none"
	}
	w.outcomes.Add(1,
		observability.L("method", string(outcome.Method)),
		observability.L("kind", kind),
	)

	if outcome.Succeeded() {
		logger.Info("payment_recorded",
			observability.F("order_id", orderID),
			observability.F("amount", outcome.Amount),
			observability.F("reference", outcome.Reference),
		)
		return nil
	}
	logger.Warn("payment_failure_recorded",
		observability.F("order_id", orderID),
		observability.F("failure_kind", kind),
		observability.F("retryable", outcome.Retryable()),
	)
	return nil
}

func (w *Worker) record(orderID string, outcome dompayment.Outcome) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ledger[orderID] = append(w.ledger[orderID], outcome)
	if outcome.Succeeded() {
		w.settled[orderID] = true
	}
}

// Attempts returns the recorded attempts for orderID in arrival order.
func (w *Worker) Attempts(orderID string) []dompayment.Outcome {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]dompayment.Outcome(nil), w.ledger[orderID]...)
}

// Unsettled lists orders with at least one attempt and no successful one.
func (w *Worker) Unsettled() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, 0)
	for id := range w.ledger {
		if !w.settled[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
