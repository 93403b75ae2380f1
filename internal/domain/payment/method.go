package payment

import "context"

type MethodKind string

const (
	MethodCreditCard MethodKind = "credit_card"
)

// Method collects a payment for an amount in minor units. Pay blocks until a
// terminal Outcome exists and always returns one: transport failures, timeouts
// and invalid input come back as failed outcomes, never as panics or errors.
type Method interface {
	Kind() MethodKind
	Pay(ctx context.Context, amount int64) Outcome
}
