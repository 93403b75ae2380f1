package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
)

// orderSlot serializes writers of one order. committed is only replaced while
// writer is held and only read under the repository lock.
type orderSlot struct {
	writer    sync.Mutex
	committed *domain.PurchaseOrder
}

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*orderSlot
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*orderSlot),
	}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.PurchaseOrder) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: %w", domain.ErrInvalidID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrConflict
	}

	r.orders[order.ID] = &orderSlot{committed: order.Clone()}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	slot, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	return slot.committed.Clone(), nil
}

// Update runs fn on a working copy while holding the order's writer lock. The
// copy is committed only when fn returns nil; otherwise the stored order is
// left as it was and fn's error is returned.
func (r *OrderRepository) Update(ctx context.Context, id string, fn func(*domain.PurchaseOrder) error) (*domain.PurchaseOrder, error) {
	r.mu.RLock()
	slot, ok := r.orders[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}

	slot.writer.Lock()
	defer slot.writer.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	working := slot.committed.Clone()
	r.mu.RUnlock()

	if err := fn(working); err != nil {
		return nil, err
	}

	r.mu.Lock()
	slot.committed = working.Clone()
	r.mu.Unlock()

	return working, nil
}
