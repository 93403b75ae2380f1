package order

import "context"

// Repository stores purchase orders. Update gives fn exclusive write access to
// a working copy of the order; the copy replaces the stored order only when fn
// returns nil. Get returns a copy of the last committed state.
type Repository interface {
	Insert(ctx context.Context, order *PurchaseOrder) error
	Get(ctx context.Context, id string) (*PurchaseOrder, error)
	Update(ctx context.Context, id string, fn func(*PurchaseOrder) error) (*PurchaseOrder, error)
}
