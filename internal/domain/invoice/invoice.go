package invoice

import (
	"errors"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/customer"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
)

var (
	ErrNotFound       = errors.New("invoice: not found")
	ErrConflict       = errors.New("invoice: already exists")
	ErrInvalidID      = errors.New("invoice: id is required")
	ErrOrderOpen      = errors.New("invoice: order is still open")
	ErrMissingOutcome = errors.New("invoice: payment outcome is required")
)

// Invoice is the terminal record of a closed order and the outcome of its
// settlement. It holds its own copies and cannot be changed once built.
type Invoice struct {
	id       string
	order    *order.PurchaseOrder
	outcome  payment.Outcome
	billing  customer.Address
	shipping customer.Address
	issuedAt time.Time
}

func New(id string, o *order.PurchaseOrder, outcome payment.Outcome, now time.Time) (*Invoice, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	if o == nil || !o.IsClosed() {
		return nil, ErrOrderOpen
	}
	if outcome.IsZero() {
		return nil, ErrMissingOutcome
	}

	return &Invoice{
		id:       id,
		order:    o.Clone(),
		outcome:  outcome,
		billing:  o.Customer.Billing,
		shipping: o.Customer.Shipping,
		issuedAt: now.UTC(),
	}, nil
}

func (i *Invoice) ID() string { return i.id }

func (i *Invoice) OrderID() string { return i.order.ID }

// Order returns a copy of the order snapshot taken at issue time.
func (i *Invoice) Order() *order.PurchaseOrder { return i.order.Clone() }

func (i *Invoice) Outcome() payment.Outcome { return i.outcome }

func (i *Invoice) BillingAddress() customer.Address { return i.billing }

func (i *Invoice) ShippingAddress() customer.Address { return i.shipping }

func (i *Invoice) IssuedAt() time.Time { return i.issuedAt }

// Paid reports whether the recorded outcome collected the order total.
func (i *Invoice) Paid() bool { return i.outcome.Succeeded() }
