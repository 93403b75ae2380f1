package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/invoice"
)

// InvoiceRepository keeps issued invoices. Invoices are immutable, so the
// stored pointers are handed out as is.
type InvoiceRepository struct {
	mu       sync.RWMutex
	invoices map[string]*invoice.Invoice
	byOrder  map[string][]string
}

func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{
		invoices: make(map[string]*invoice.Invoice),
		byOrder:  make(map[string][]string),
	}
}

func (r *InvoiceRepository) Save(ctx context.Context, inv *invoice.Invoice) error {
	_ = ctx
	if inv == nil || inv.ID() == "" {
		return invoice.ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.invoices[inv.ID()]; exists {
		return invoice.ErrConflict
	}
	r.invoices[inv.ID()] = inv
	r.byOrder[inv.OrderID()] = append(r.byOrder[inv.OrderID()], inv.ID())
	return nil
}

func (r *InvoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.invoices[id]
	if !ok {
		return nil, invoice.ErrNotFound
	}
	return inv, nil
}

func (r *InvoiceRepository) ForOrder(ctx context.Context, orderID string) ([]*invoice.Invoice, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byOrder[orderID]
	out := make([]*invoice.Invoice, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.invoices[id])
	}
	return out, nil
}
