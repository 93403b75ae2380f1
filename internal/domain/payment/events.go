package payment

import (
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
)

// PaymentSucceededEvent is emitted once per successful attempt.
type PaymentSucceededEvent struct {
	OrderID    string
	Outcome    Outcome
	OccurredAt time.Time
}

func (PaymentSucceededEvent) EventName() string { return "payment.succeeded" }

// PaymentFailedEvent is emitted once per failed attempt, retried or not.
type PaymentFailedEvent struct {
	OrderID    string
	Outcome    Outcome
	Retryable  bool
	OccurredAt time.Time
}

func (PaymentFailedEvent) EventName() string { return "payment.failed" }

// NewAttemptEvent returns the event describing o for orderID.
func NewAttemptEvent(orderID string, o Outcome) outbox.Event {
	if o.Succeeded() {
		return PaymentSucceededEvent{OrderID: orderID, Outcome: o, OccurredAt: time.Now().UTC()}
	}
	return PaymentFailedEvent{OrderID: orderID, Outcome: o, Retryable: o.Retryable(), OccurredAt: time.Now().UTC()}
}
