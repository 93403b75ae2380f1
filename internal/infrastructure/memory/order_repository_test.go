package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/customer"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func newOrder(t *testing.T, id string) *domain.PurchaseOrder {
	t.Helper()
	addr := customer.Address{Line: "1 Main St", PostalCode: "10001", City: "New York", Country: "US", State: "NY"}
	c, err := customer.New("Ada", "Lovelace", "ada@example.com", addr, addr)
	require.NoError(t, err)
	o, err := domain.New(id, c, now)
	require.NoError(t, err)
	return o
}

func widget(t *testing.T) catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct("p-1", "Widget", "", catalog.CategoryPhysical, 35)
	require.NoError(t, err)
	return p
}

func TestOrderRepository_InsertGet(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	o := newOrder(t, "o-1")

	require.NoError(t, repo.Insert(ctx, o))
	assert.ErrorIs(t, repo.Insert(ctx, o), domain.ErrConflict)

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := repo.Get(ctx, "o-1")
	require.NoError(t, err)
	require.NoError(t, got.AddItem(widget(t), 1, now))

	again, err := repo.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.True(t, again.IsEmpty(), "returned orders are copies")
}

func TestOrderRepository_UpdateCommitsOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	require.NoError(t, repo.Insert(ctx, newOrder(t, "o-1")))

	boom := errors.New("boom")
	_, err := repo.Update(ctx, "o-1", func(o *domain.PurchaseOrder) error {
		require.NoError(t, o.AddItem(widget(t), 3, now))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())

	updated, err := repo.Update(ctx, "o-1", func(o *domain.PurchaseOrder) error {
		return o.AddItem(widget(t), 3, now)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(105), updated.Total())

	got, err = repo.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, int64(105), got.Total())

	_, err = repo.Update(ctx, "missing", func(*domain.PurchaseOrder) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderRepository_ConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	require.NoError(t, repo.Insert(ctx, newOrder(t, "o-1")))
	p := widget(t)

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Update(ctx, "o-1", func(o *domain.PurchaseOrder) error {
				return o.AddItem(p, 1, now)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.Get(ctx, "o-1")
	require.NoError(t, err)
	li, ok := got.Item("p-1")
	require.True(t, ok)
	assert.Equal(t, writers, li.Quantity)
	assert.Equal(t, int64(writers*35), got.Total())
}

func TestOrderRepository_UpdateHonorsCanceledContext(t *testing.T) {
	repo := NewOrderRepository()
	require.NoError(t, repo.Insert(context.Background(), newOrder(t, "o-1")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := repo.Update(ctx, "o-1", func(*domain.PurchaseOrder) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
