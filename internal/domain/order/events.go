package order

import "time"

// OrderClosedEvent is emitted when an order stops accepting line-item changes.
type OrderClosedEvent struct {
	OrderID       string
	CustomerEmail string
	Amount        int64
	Items         int
	ClosedAt      time.Time
}

func (OrderClosedEvent) EventName() string { return "order.closed" }

func NewOrderClosedEvent(o *PurchaseOrder) OrderClosedEvent {
	closedAt, _ := o.ClosedAt()
	return OrderClosedEvent{
		OrderID:       o.ID,
		CustomerEmail: o.Customer.Email,
		Amount:        o.Total(),
		Items:         len(o.items),
		ClosedAt:      closedAt,
	}
}
