// Package storagetest holds behaviour checks shared by every repository
// backend. Each check expects an empty store.
package storagetest

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
)

// NewProduct returns a valid product.
func NewProduct(id, code string, category product.Category, price string) product.Product {
	return product.Product{
		ID:          id,
		Title:       "Producto " + id,
		Description: "Descripción " + id,
		Code:        code,
		Price:       decimal.RequireFromString(price),
		Status:      true,
		Stock:       5,
		Category:    category,
	}
}

func ids(products []product.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

// Products checks a product.Repository.
func Products(t *testing.T, repo product.Repository) {
	ctx := context.Background()

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Empty(t, all)

	for _, p := range []product.Product{
		NewProduct("p1", "A", product.CategoryHome, "300"),
		NewProduct("p2", "B", product.CategoryRetro, "99.90"),
		NewProduct("p3", "C", product.CategoryHome, "200"),
		NewProduct("p4", "D", product.CategoryHome, "99.90"),
	} {
		require.NoError(t, repo.Create(ctx, &p))
	}

	t.Run("List", func(t *testing.T) {
		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, ids(all))
		assert.True(t, decimal.RequireFromString("99.90").Equal(all[1].Price))
	})

	t.Run("Find", func(t *testing.T) {
		got, total, err := repo.Find(ctx, product.Query{Category: product.CategoryHome, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Equal(t, []string{"p1", "p3", "p4"}, ids(got))

		got, total, err = repo.Find(ctx, product.Query{Sort: product.SortAsc, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		assert.Equal(t, []string{"p2", "p4", "p3", "p1"}, ids(got))

		got, total, err = repo.Find(ctx, product.Query{Category: product.CategoryHome, Sort: product.SortDesc, Offset: 1, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Equal(t, []string{"p3"}, ids(got))
	})

	t.Run("GetByID", func(t *testing.T) {
		p, err := repo.GetByID(ctx, "p3")
		require.NoError(t, err)
		assert.Equal(t, "C", p.Code)
		assert.Equal(t, product.CategoryHome, p.Category)

		_, err = repo.GetByID(ctx, "missing")
		require.ErrorIs(t, err, product.ErrNotFound)
	})

	t.Run("CodeExists", func(t *testing.T) {
		taken, err := repo.CodeExists(ctx, "A", "")
		require.NoError(t, err)
		assert.True(t, taken)

		taken, err = repo.CodeExists(ctx, "A", "p1")
		require.NoError(t, err)
		assert.False(t, taken)

		dup := NewProduct("p9", "A", product.CategoryHome, "1")
		require.ErrorIs(t, repo.Create(ctx, &dup), product.ErrDuplicateCode)
	})

	t.Run("Update", func(t *testing.T) {
		stock, status := 0, false
		price := decimal.RequireFromString("150.50")
		updated, err := repo.Update(ctx, "p2", product.Patch{Stock: &stock, Status: &status, Price: &price})
		require.NoError(t, err)
		assert.Equal(t, 0, updated.Stock)
		assert.False(t, updated.Status)
		assert.True(t, price.Equal(updated.Price))
		assert.Equal(t, "B", updated.Code)

		code := "C"
		_, err = repo.Update(ctx, "p2", product.Patch{Code: &code})
		require.ErrorIs(t, err, product.ErrDuplicateCode)

		_, err = repo.Update(ctx, "missing", product.Patch{Stock: &stock})
		require.ErrorIs(t, err, product.ErrNotFound)

		_, err = repo.Update(ctx, "missing", product.Patch{Code: &code})
		require.ErrorIs(t, err, product.ErrNotFound, "a missing id wins over a taken code")
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "p3"))
		require.ErrorIs(t, repo.Delete(ctx, "p3"), product.ErrNotFound)

		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"p1", "p2", "p4"}, ids(all))
	})
}

// Carts checks a cart.Repository, including concurrent merges into one line
// item.
func Carts(t *testing.T, repo cart.Repository) {
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &cart.Cart{ID: "c1", Products: []cart.LineItem{}}))

	got, err := repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, got.Products)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, cart.ErrNotFound)
	_, err = repo.AddItem(ctx, "missing", cart.LineItem{ProductID: "p1", Quantity: 1})
	require.ErrorIs(t, err, cart.ErrNotFound)

	got, err = repo.AddItem(ctx, "c1", cart.LineItem{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, []cart.LineItem{{ProductID: "p1", Quantity: 1}}, got.Products)

	got, err = repo.AddItem(ctx, "c1", cart.LineItem{ProductID: "p2", Quantity: 2})
	require.NoError(t, err)
	got, err = repo.AddItem(ctx, "c1", cart.LineItem{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, []cart.LineItem{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 2},
	}, got.Products)

	const workers = 10
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AddItem(ctx, "c1", cart.LineItem{ProductID: "p3", Quantity: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err = repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got.Products, 3)
	assert.Equal(t, cart.LineItem{ProductID: "p3", Quantity: workers}, got.Products[2])
}
