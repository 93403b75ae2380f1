package gateway

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(number string) payment.ChargeRequest {
	return payment.ChargeRequest{
		Amount:   99,
		Currency: "USD",
		Card:     payment.Card{Holder: "Ada Lovelace", Number: number, ExpMonth: 12, ExpYear: 2028, CVV: "123"},
	}
}

func TestSimulated_Approves(t *testing.T) {
	gw := NewSimulated(WithSeed(1))
	ch, err := gw.Charge(context.Background(), request("4242424242424242"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ch.Reference, "ch_"))
}

func TestSimulated_FixedCards(t *testing.T) {
	gw := NewSimulated(WithSeed(1))

	_, err := gw.Charge(context.Background(), request(DeclineCard))
	assert.ErrorIs(t, err, payment.ErrPaymentDeclined)

	_, err = gw.Charge(context.Background(), request(UnavailableCard))
	assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	assert.True(t, payment.IsRetryable(err))
}

func TestSimulated_SuccessRate(t *testing.T) {
	never := NewSimulated(WithSeed(7), WithSuccessRate(0))
	for i := 0; i < 20; i++ {
		_, err := never.Charge(context.Background(), request("4242424242424242"))
		require.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	}

	assert.Equal(t, 1.0, NewSimulated(WithSuccessRate(3)).SuccessRate())
	assert.Equal(t, 0.0, NewSimulated(WithSuccessRate(-1)).SuccessRate())
}

func TestSimulated_RespectsContext(t *testing.T) {
	gw := NewSimulated(WithLatency(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := gw.Charge(ctx, request("4242424242424242"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSimulated_ThroughCreditCard(t *testing.T) {
	now := func() time.Time { return time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC) }
	card := request(DeclineCard).Card

	out := payment.NewCreditCard(card, NewSimulated(), "USD", payment.WithClock(now)).Pay(context.Background(), 99)
	assert.Equal(t, payment.FailureDeclined, out.Kind)
	assert.Zero(t, out.Amount)
	assert.False(t, out.Retryable())
}
