package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/validation"
)

// Card holds the details needed to charge a credit card.
type Card struct {
	Holder   string `json:"holder" validate:"required"`
	Number   string `json:"number" validate:"required,credit_card"`
	ExpMonth int    `json:"exp_month" validate:"min=1,max=12"`
	ExpYear  int    `json:"exp_year" validate:"min=2000,max=9999"`
	CVV      string `json:"cvv" validate:"required,numeric,min=3,max=4"`
}

// Expired reports whether now is past the last instant of the expiry month.
func (c Card) Expired(now time.Time) bool {
	validUntil := time.Date(c.ExpYear, time.Month(c.ExpMonth)+1, 1, 0, 0, 0, 0, time.UTC)
	return !now.UTC().Before(validUntil)
}

func (c Card) Last4() string {
	if len(c.Number) < 4 {
		return c.Number
	}
	return c.Number[len(c.Number)-4:]
}

// Validate checks presence, the Luhn checksum and expiry.
func (c Card) Validate(now time.Time) error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrCardInvalid, err)
	}
	if c.Expired(now) {
		return fmt.Errorf("%w: expired %02d/%d", ErrCardInvalid, c.ExpMonth, c.ExpYear)
	}
	return nil
}

type ChargeRequest struct {
	Amount   int64
	Currency string
	Card     Card
}

type Charge struct {
	Reference string
}

// Gateway is the outbound port to whatever actually moves the money. Errors
// wrapping ErrPaymentDeclined or ErrCardInvalid are terminal; anything else is
// treated as transient.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (Charge, error)
}

type CreditCard struct {
	card     Card
	gateway  Gateway
	currency string
	now      func() time.Time
}

type CardOption func(*CreditCard)

// WithClock overrides the time source used for expiry checks and timestamps.
func WithClock(now func() time.Time) CardOption {
	return func(c *CreditCard) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCreditCard(card Card, gateway Gateway, currency string, opts ...CardOption) *CreditCard {
	c := &CreditCard{
		card:     card,
		gateway:  gateway,
		currency: currency,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CreditCard) Kind() MethodKind { return MethodCreditCard }

func (c *CreditCard) Card() Card { return c.card }

// Pay charges exactly amount. Invalid or expired cards fail before the gateway
// is contacted. If ctx ends before the gateway answers the outcome is a
// retryable timeout, even when the gateway ignores cancellation.
func (c *CreditCard) Pay(ctx context.Context, amount int64) Outcome {
	if amount < 0 {
		return c.failed(FailureInvalidAmount, fmt.Sprintf("amount %d is negative", amount))
	}
	if err := c.card.Validate(c.now()); err != nil {
		return c.failed(FailureCardInvalid, err.Error())
	}
	if c.gateway == nil {
		return c.failed(FailureGatewayUnavailable, "no gateway configured")
	}
	if err := ctx.Err(); err != nil {
		return c.failed(FailureTimeout, err.Error())
	}

	type result struct {
		charge Charge
		err    error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%w: gateway panic: %v", ErrGatewayUnavailable, r)}
			}
		}()
		ch, err := c.gateway.Charge(ctx, ChargeRequest{Amount: amount, Currency: c.currency, Card: c.card})
		done <- result{charge: ch, err: err}
	}()

	settle := func(r result) Outcome {
		if r.err != nil {
			return c.failed(classify(r.err), r.err.Error())
		}
		return Succeeded(MethodCreditCard, amount, c.currency, c.now(), r.charge.Reference)
	}

	select {
	case <-ctx.Done():
		// a charge that completed at the deadline still counts
		select {
		case r := <-done:
			return settle(r)
		default:
		}
		return c.failed(FailureTimeout, ctx.Err().Error())
	case r := <-done:
		return settle(r)
	}
}

func (c *CreditCard) failed(kind FailureKind, msg string) Outcome {
	return Failed(MethodCreditCard, kind, msg, c.currency, c.now())
}

func classify(err error) FailureKind {
	switch {
	case errors.Is(err, ErrPaymentDeclined):
		return FailureDeclined
	case errors.Is(err, ErrCardInvalid):
		return FailureCardInvalid
	case errors.Is(err, ErrInvalidAmount):
		return FailureInvalidAmount
	case errors.Is(err, ErrPaymentTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return FailureTimeout
	default:
		return FailureGatewayUnavailable
	}
}
