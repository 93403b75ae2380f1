package invoice

import "context"

type Repository interface {
	Save(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	// ForOrder returns the invoices issued for orderID, oldest first.
	ForOrder(ctx context.Context, orderID string) ([]*Invoice, error)
}
