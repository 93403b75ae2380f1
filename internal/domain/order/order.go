package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/customer"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
)

var (
	ErrNotFound        = errors.New("order: not found")
	ErrConflict        = errors.New("order: conflict")
	ErrInvalidID       = errors.New("order: id is required")
	ErrInvalidQuantity = errors.New("order: quantity must be greater than zero")
	ErrProductInactive = errors.New("order: product is not active")
	ErrOrderClosed     = errors.New("order: order is closed")
	ErrEmptyOrder      = errors.New("order: order has no line items")
	ErrAlreadyClosed   = errors.New("order: order already closed")
	ErrAlreadyPaid     = errors.New("order: order already paid")
	ErrAmountOverflow  = errors.New("order: quantity or total exceeds the representable amount")
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// LineItem is a product snapshot and how many of it were ordered.
type LineItem struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

func (li LineItem) Subtotal() int64 {
	return li.Product.Price * int64(li.Quantity)
}

// PurchaseOrder is the aggregate a customer fills before settlement. The total
// is never stored; it is summed from the line items on every read.
type PurchaseOrder struct {
	ID        string
	Customer  customer.Customer
	CreatedAt time.Time
	UpdatedAt time.Time

	items    map[string]LineItem
	sequence []string
	closedAt *time.Time
	payments []payment.Outcome
}

func New(id string, c customer.Customer, now time.Time) (*PurchaseOrder, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("order: %w", err)
	}

	now = now.UTC()
	return &PurchaseOrder{
		ID:        id,
		Customer:  c,
		CreatedAt: now,
		UpdatedAt: now,
		items:     make(map[string]LineItem),
	}, nil
}

func (o *PurchaseOrder) Status() Status { return o.state().Status() }

func (o *PurchaseOrder) IsClosed() bool { return o.closedAt != nil }

// ClosedAt returns the closing timestamp and whether one is set.
func (o *PurchaseOrder) ClosedAt() (time.Time, bool) {
	if o.closedAt == nil {
		return time.Time{}, false
	}
	return *o.closedAt, true
}

// AddItem adds quantity of p. A product already on the order keeps its first
// snapshot and has the quantities summed.
func (o *PurchaseOrder) AddItem(p catalog.Product, quantity int, now time.Time) error {
	return o.state().AddItem(o, p, quantity, now)
}

// RemoveItem drops the line item for productID. Removing an absent product is a no-op.
func (o *PurchaseOrder) RemoveItem(productID string, now time.Time) error {
	return o.state().RemoveItem(o, productID, now)
}

func (o *PurchaseOrder) Close(now time.Time) error {
	return o.state().Close(o, now)
}

// Total is Σ(unit price × quantity) over the current line items.
func (o *PurchaseOrder) Total() int64 {
	var total int64
	for _, li := range o.items {
		total += li.Subtotal()
	}
	return total
}

// Items returns the line items in the order they were first added.
func (o *PurchaseOrder) Items() []LineItem {
	out := make([]LineItem, 0, len(o.sequence))
	for _, id := range o.sequence {
		out = append(out, o.items[id])
	}
	return out
}

func (o *PurchaseOrder) Item(productID string) (LineItem, bool) {
	li, ok := o.items[productID]
	return li, ok
}

func (o *PurchaseOrder) IsEmpty() bool { return len(o.items) == 0 }

// RecordPayment appends the outcome of one payment attempt. Attempts are kept
// whether the order is open or closed so failures stay on record.
func (o *PurchaseOrder) RecordPayment(outcome payment.Outcome) {
	o.payments = append(o.payments, outcome)
	o.touch(outcome.AttemptedAt)
}

func (o *PurchaseOrder) Payments() []payment.Outcome {
	return append([]payment.Outcome(nil), o.payments...)
}

// Paid reports whether any recorded attempt collected the money.
func (o *PurchaseOrder) Paid() bool {
	for _, p := range o.payments {
		if p.Succeeded() {
			return true
		}
	}
	return false
}

// Clone returns a deep copy that shares no mutable state with o.
func (o *PurchaseOrder) Clone() *PurchaseOrder {
	if o == nil {
		return nil
	}
	clone := *o
	clone.items = make(map[string]LineItem, len(o.items))
	for k, v := range o.items {
		clone.items[k] = v
	}
	clone.sequence = append([]string(nil), o.sequence...)
	clone.payments = append([]payment.Outcome(nil), o.payments...)
	if o.closedAt != nil {
		t := *o.closedAt
		clone.closedAt = &t
	}
	return &clone
}

func (o *PurchaseOrder) state() orderState {
	if o.closedAt != nil {
		return closedState{}
	}
	return openState{}
}

func (o *PurchaseOrder) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	o.UpdatedAt = now.UTC()
}
