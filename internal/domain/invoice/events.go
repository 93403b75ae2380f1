package invoice

import "time"

// InvoiceIssuedEvent is emitted after an invoice has been stored.
type InvoiceIssuedEvent struct {
	InvoiceID string
	OrderID   string
	Amount    int64
	Paid      bool
	IssuedAt  time.Time
}

func (InvoiceIssuedEvent) EventName() string { return "invoice.issued" }

func NewInvoiceIssuedEvent(i *Invoice) InvoiceIssuedEvent {
	return InvoiceIssuedEvent{
		InvoiceID: i.id,
		OrderID:   i.order.ID,
		Amount:    i.outcome.Amount,
		Paid:      i.Paid(),
		IssuedAt:  i.issuedAt,
	}
}
