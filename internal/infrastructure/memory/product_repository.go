package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
)

type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]catalog.Product
}

func NewProductRepository(seed ...catalog.Product) *ProductRepository {
	r := &ProductRepository{
		products: make(map[string]catalog.Product, len(seed)),
	}
	for _, p := range seed {
		r.products[p.ID] = p
	}
	return r
}

func (r *ProductRepository) Save(ctx context.Context, p catalog.Product) error {
	_ = ctx
	if p.ID == "" {
		return catalog.ErrInvalidProduct
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.products[p.ID] = p
	return nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (catalog.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

// List returns every product sorted by name, then id.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	_ = ctx

	r.mu.RLock()
	out := make([]catalog.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
