package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/storage/storagetest"
)

func newTestProduct(id, code string, category product.Category, price int64) product.Product {
	return product.Product{
		ID:          id,
		Title:       "Producto " + id,
		Description: "Descripción " + id,
		Code:        code,
		Price:       decimal.NewFromInt(price),
		Status:      true,
		Stock:       5,
		Category:    category,
	}
}

func newSeededProducts(t *testing.T) *ProductRepository {
	t.Helper()
	repo, err := NewProductRepository(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	for _, p := range []product.Product{
		newTestProduct("1", "A", product.CategoryHome, 300),
		newTestProduct("2", "B", product.CategoryRetro, 100),
		newTestProduct("3", "C", product.CategoryHome, 200),
		newTestProduct("4", "D", product.CategoryHome, 100),
	} {
		require.NoError(t, repo.Create(ctx, &p))
	}
	return repo
}

func ids(products []product.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestProductRepository_MissingFile(t *testing.T) {
	repo, err := NewProductRepository(filepath.Join(t.TempDir(), "nested"))
	require.NoError(t, err)

	products, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)

	_, err = repo.GetByID(context.Background(), "1")
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestProductRepository_ListKeepsInsertionOrder(t *testing.T) {
	repo := newSeededProducts(t)

	products, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(products))
	assert.True(t, decimal.NewFromInt(300).Equal(products[0].Price))
}

func TestProductRepository_Find(t *testing.T) {
	repo := newSeededProducts(t)
	ctx := context.Background()

	got, total, err := repo.Find(ctx, product.Query{Category: product.CategoryHome, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"1", "3", "4"}, ids(got))

	got, total, err = repo.Find(ctx, product.Query{Sort: product.SortAsc, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, []string{"2", "4", "3", "1"}, ids(got), "ties keep insertion order")

	got, total, err = repo.Find(ctx, product.Query{Category: product.CategoryHome, Sort: product.SortDesc, Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"3"}, ids(got))

	got, _, err = repo.Find(ctx, product.Query{Offset: 10, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProductRepository_CreateDuplicateCode(t *testing.T) {
	repo := newSeededProducts(t)

	dup := newTestProduct("9", "A", product.CategoryHome, 1)
	require.ErrorIs(t, repo.Create(context.Background(), &dup), product.ErrDuplicateCode)

	taken, err := repo.CodeExists(context.Background(), "A", "")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.CodeExists(context.Background(), "A", "1")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestProductRepository_Update(t *testing.T) {
	repo := newSeededProducts(t)
	ctx := context.Background()

	stock := 0
	status := false
	updated, err := repo.Update(ctx, "2", product.Patch{Stock: &stock, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Stock)
	assert.False(t, updated.Status)
	assert.Equal(t, "B", updated.Code)

	stored, err := repo.GetByID(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, *updated, *stored)

	code := "C"
	_, err = repo.Update(ctx, "2", product.Patch{Code: &code})
	require.ErrorIs(t, err, product.ErrDuplicateCode)

	_, err = repo.Update(ctx, "missing", product.Patch{Stock: &stock})
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestProductRepository_Delete(t *testing.T) {
	repo := newSeededProducts(t)
	ctx := context.Background()

	require.NoError(t, repo.Delete(ctx, "3"))
	require.ErrorIs(t, repo.Delete(ctx, "3"), product.ErrNotFound)

	products, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "4"}, ids(products))
}

func TestProductRepository_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "products.json"), []byte("{not json"), 0o644))

	repo, err := NewProductRepository(dir)
	require.NoError(t, err)

	_, err = repo.List(context.Background())
	require.Error(t, err)
}

func TestProductRepository_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewProductRepository(dir)
	require.NoError(t, err)

	p := newTestProduct("1", "A", product.CategoryHome, 10)
	require.NoError(t, repo.Create(context.Background(), &p))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "products.json", entries[0].Name())
}

func TestCartRepository(t *testing.T) {
	repo, err := NewCartRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &cart.Cart{ID: "c1", Products: []cart.LineItem{}}))

	got, err := repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, got.Products)

	_, err = repo.AddItem(ctx, "c1", cart.LineItem{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	got, err = repo.AddItem(ctx, "c1", cart.LineItem{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, []cart.LineItem{{ProductID: "p1", Quantity: 2}}, got.Products)

	_, err = repo.AddItem(ctx, "missing", cart.LineItem{ProductID: "p1", Quantity: 1})
	require.ErrorIs(t, err, cart.ErrNotFound)
	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestCartRepository_ConcurrentAddItem(t *testing.T) {
	repo, err := NewCartRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &cart.Cart{ID: "c1", Products: []cart.LineItem{}}))

	const workers = 10
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AddItem(ctx, "c1", cart.LineItem{ProductID: "p1", Quantity: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []cart.LineItem{{ProductID: "p1", Quantity: workers}}, got.Products)
}

func TestPing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Ping(context.Background(), dir))

	f := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(f, nil, 0o644))
	require.Error(t, Ping(context.Background(), f))
	require.Error(t, Ping(context.Background(), filepath.Join(dir, "absent")))
}

func TestProductRepository_Behaviour(t *testing.T) {
	repo, err := NewProductRepository(t.TempDir())
	require.NoError(t, err)
	storagetest.Products(t, repo)
}

func TestCartRepository_Behaviour(t *testing.T) {
	repo, err := NewCartRepository(t.TempDir())
	require.NoError(t, err)
	storagetest.Carts(t, repo)
}
