package order

import (
	"math"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
)

// orderState implements the state pattern for the open → closed lifecycle.
type orderState interface {
	Status() Status
	AddItem(o *PurchaseOrder, p catalog.Product, quantity int, now time.Time) error
	RemoveItem(o *PurchaseOrder, productID string, now time.Time) error
	Close(o *PurchaseOrder, now time.Time) error
}

type openState struct{}

func (openState) Status() Status { return StatusOpen }

func (openState) AddItem(o *PurchaseOrder, p catalog.Product, quantity int, now time.Time) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !p.Active {
		return ErrProductInactive
	}
	li, exists := o.items[p.ID]
	if !exists {
		li = LineItem{Product: p}
	}
	if quantity > math.MaxInt-li.Quantity {
		return ErrAmountOverflow
	}
	next := LineItem{Product: li.Product, Quantity: li.Quantity + quantity}
	if !fitsTotal(o.Total()-li.Subtotal(), next) {
		return ErrAmountOverflow
	}

	o.items[p.ID] = next
	if !exists {
		o.sequence = append(o.sequence, p.ID)
	}
	o.touch(now)
	return nil
}

// fitsTotal reports whether li's subtotal and rest + subtotal stay within
// int64. Prices are never negative.
func fitsTotal(rest int64, li LineItem) bool {
	price, qty := li.Product.Price, int64(li.Quantity)
	if price != 0 && qty > math.MaxInt64/price {
		return false
	}
	return rest <= math.MaxInt64-price*qty
}

func (openState) RemoveItem(o *PurchaseOrder, productID string, now time.Time) error {
	if _, ok := o.items[productID]; !ok {
		return nil
	}
	delete(o.items, productID)
	for i, id := range o.sequence {
		if id == productID {
			o.sequence = append(o.sequence[:i], o.sequence[i+1:]...)
			break
		}
	}
	o.touch(now)
	return nil
}

func (openState) Close(o *PurchaseOrder, now time.Time) error {
	if len(o.items) == 0 {
		return ErrEmptyOrder
	}
	closed := now.UTC()
	o.closedAt = &closed
	o.touch(now)
	return nil
}

type closedState struct{}

func (closedState) Status() Status { return StatusClosed }

func (closedState) AddItem(*PurchaseOrder, catalog.Product, int, time.Time) error {
	return ErrOrderClosed
}

func (closedState) RemoveItem(*PurchaseOrder, string, time.Time) error {
	return ErrOrderClosed
}

func (closedState) Close(*PurchaseOrder, time.Time) error {
	return ErrAlreadyClosed
}
