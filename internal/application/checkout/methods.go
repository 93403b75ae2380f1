package checkout

import (
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
)

// Methods builds payment methods bound to the process's gateway, settlement
// currency and clock.
type Methods struct {
	gateway  payment.Gateway
	currency string
	now      func() time.Time
}

func NewMethods(gateway payment.Gateway, currency string, clock Clock) *Methods {
	m := &Methods{gateway: gateway, currency: currency, now: func() time.Time { return time.Now().UTC() }}
	if clock != nil {
		m.now = clock.Now
	}
	return m
}

func (m *Methods) CreditCard(card payment.Card) payment.Method {
	return payment.NewCreditCard(card, m.gateway, m.currency, payment.WithClock(m.now))
}

func (m *Methods) Currency() string { return m.currency }
