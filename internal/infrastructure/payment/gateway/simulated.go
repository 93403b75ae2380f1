package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/google/uuid"
)

// Card numbers with a fixed answer, in the spirit of card-network test cards.
const (
	DeclineCard     = "4000000000000002"
	UnavailableCard = "4000000000000119"
)

// Simulated is an in-process stand-in for a card processor. It waits for the
// configured latency, then approves with probability successRate and reports
// the gateway as unavailable otherwise.
type Simulated struct {
	mu          sync.Mutex
	random      *rand.Rand
	successRate float64
	latency     time.Duration
}

type Option func(*Simulated)

func WithSeed(seed int64) Option {
	return func(s *Simulated) { s.random = rand.New(rand.NewSource(seed)) }
}

// WithSuccessRate sets the approval probability, clamped to [0, 1].
func WithSuccessRate(rate float64) Option {
	return func(s *Simulated) {
		switch {
		case rate < 0:
			rate = 0
		case rate > 1:
			rate = 1
		}
		s.successRate = rate
	}
}

func WithLatency(d time.Duration) Option {
	return func(s *Simulated) {
		if d >= 0 {
			s.latency = d
		}
	}
}

func NewSimulated(opts ...Option) *Simulated {
	s := &Simulated{
		random:      rand.New(rand.NewSource(time.Now().UnixNano())),
		successRate: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulated) Charge(ctx context.Context, req payment.ChargeRequest) (payment.Charge, error) {
	if req.Amount < 0 {
		return payment.Charge{}, payment.ErrInvalidAmount
	}

	if s.latency > 0 {
		t := time.NewTimer(s.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return payment.Charge{}, ctx.Err()
		case <-t.C:
		}
	}

	switch req.Card.Number {
	case DeclineCard:
		return payment.Charge{}, fmt.Errorf("%w: card ending %s", payment.ErrPaymentDeclined, req.Card.Last4())
	case UnavailableCard:
		return payment.Charge{}, fmt.Errorf("%w: issuer not reachable", payment.ErrGatewayUnavailable)
	}

	if !s.approve() {
		return payment.Charge{}, fmt.Errorf("%w: processor busy", payment.ErrGatewayUnavailable)
	}
	return payment.Charge{Reference: "ch_" + uuid.NewString()}, nil
}

func (s *Simulated) approve() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.random.Float64() < s.successRate
}

func (s *Simulated) SuccessRate() float64 { return s.successRate }
