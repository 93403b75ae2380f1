package payment

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrCardInvalid        = errors.New("payment: card invalid")
	ErrPaymentDeclined    = errors.New("payment: declined")
	ErrInvalidAmount      = errors.New("payment: amount must be zero or greater")
	ErrPaymentTimeout     = errors.New("payment: timed out")
	ErrGatewayUnavailable = errors.New("payment: gateway unavailable")
)

// FailureKind classifies a failed attempt. The zero value means no failure.
type FailureKind string

const (
	FailureNone               FailureKind = ""
	FailureCardInvalid        FailureKind = "card_invalid"
	FailureDeclined           FailureKind = "declined"
	FailureInvalidAmount      FailureKind = "invalid_amount"
	FailureTimeout            FailureKind = "timeout"
	FailureGatewayUnavailable FailureKind = "gateway_unavailable"
)

// Retryable reports whether the same request may succeed later without new input.
func (k FailureKind) Retryable() bool {
	return k == FailureTimeout || k == FailureGatewayUnavailable
}

// Err returns the sentinel error for k, or nil for FailureNone.
func (k FailureKind) Err() error {
	switch k {
	case FailureNone:
		return nil
	case FailureCardInvalid:
		return ErrCardInvalid
	case FailureDeclined:
		return ErrPaymentDeclined
	case FailureInvalidAmount:
		return ErrInvalidAmount
	case FailureTimeout:
		return ErrPaymentTimeout
	default:
		return ErrGatewayUnavailable
	}
}

// IsRetryable reports whether err stems from a transient payment failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPaymentTimeout) || errors.Is(err, ErrGatewayUnavailable)
}

// Outcome is the immutable result of one payment attempt. A failed outcome
// never carries a collected amount.
type Outcome struct {
	Amount      int64       `json:"amount"`
	Currency    string      `json:"currency"`
	AttemptedAt time.Time   `json:"attempted_at"`
	Method      MethodKind  `json:"method"`
	Kind        FailureKind `json:"failure_kind,omitempty"`
	Error       string      `json:"error,omitempty"`
	Reference   string      `json:"reference,omitempty"`
}

func Succeeded(method MethodKind, amount int64, currency string, at time.Time, reference string) Outcome {
	return Outcome{
		Amount:      amount,
		Currency:    currency,
		AttemptedAt: at.UTC(),
		Method:      method,
		Reference:   reference,
	}
}

func Failed(method MethodKind, kind FailureKind, message, currency string, at time.Time) Outcome {
	if kind == FailureNone {
		kind = FailureGatewayUnavailable
	}
	if message == "" {
		message = string(kind)
	}
	return Outcome{
		Currency:    currency,
		AttemptedAt: at.UTC(),
		Method:      method,
		Kind:        kind,
		Error:       message,
	}
}

func (o Outcome) IsZero() bool { return o.AttemptedAt.IsZero() }

func (o Outcome) Succeeded() bool { return !o.IsZero() && o.Error == "" }

func (o Outcome) Retryable() bool { return !o.Succeeded() && o.Kind.Retryable() }

// Err exposes a failed outcome as an error matching the kind's sentinel.
func (o Outcome) Err() error {
	if o.Succeeded() {
		return nil
	}
	sentinel := o.Kind.Err()
	if sentinel == nil {
		sentinel = ErrGatewayUnavailable
	}
	return fmt.Errorf("%w: %s", sentinel, o.Error)
}

func (o Outcome) Status() string {
	if o.Succeeded() {
		return "succeeded"
	}
	return "failed"
}
