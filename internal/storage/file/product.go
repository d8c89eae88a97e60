package file

import (
	"context"
	"path/filepath"
	"slices"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository on products.json.
type ProductRepository struct {
	c collection
}

// NewProductRepository returns a ProductRepository storing its file in dir.
func NewProductRepository(dir string) (*ProductRepository, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &ProductRepository{
		c: collection{path: filepath.Join(dir, "products.json")},
	}, nil
}

func (r *ProductRepository) load() ([]product.Product, error) {
	products := []product.Product{}
	err := r.c.decode(func(d *jx.Decoder) error {
		var err error
		products, err = product.DecodeList(d)
		return err
	})
	return products, err
}

func (r *ProductRepository) save(products []product.Product) error {
	return r.c.encode(func(e *jx.Encoder) {
		product.EncodeList(e, products)
	})
}

// List returns all products in file order.
func (r *ProductRepository) List(_ context.Context) ([]product.Product, error) {
	return r.load()
}

// Find filters, sorts and windows the products in memory.
func (r *ProductRepository) Find(_ context.Context, q product.Query) ([]product.Product, int, error) {
	all, err := r.load()
	if err != nil {
		return nil, 0, err
	}

	matched := all
	if q.Category != "" {
		matched = slices.DeleteFunc(slices.Clone(all), func(p product.Product) bool {
			return p.Category != q.Category
		})
	}
	switch q.Sort {
	case product.SortAsc:
		slices.SortStableFunc(matched, func(a, b product.Product) int { return a.Price.Cmp(b.Price) })
	case product.SortDesc:
		slices.SortStableFunc(matched, func(a, b product.Product) int { return b.Price.Cmp(a.Price) })
	}

	total := len(matched)
	start := min(q.Offset, total)
	end := min(start+q.Limit, total)
	return matched[start:end], total, nil
}

// GetByID returns the product with id.
func (r *ProductRepository) GetByID(_ context.Context, id string) (*product.Product, error) {
	all, err := r.load()
	if err != nil {
		return nil, err
	}
	i := indexOf(all, id)
	if i < 0 {
		return nil, product.ErrNotFound
	}
	return &all[i], nil
}

// CodeExists reports whether a product other than exceptID uses code.
func (r *ProductRepository) CodeExists(_ context.Context, code, exceptID string) (bool, error) {
	all, err := r.load()
	if err != nil {
		return false, err
	}
	return codeTaken(all, code, exceptID), nil
}

// Create appends p to the file.
func (r *ProductRepository) Create(_ context.Context, p *product.Product) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	all, err := r.load()
	if err != nil {
		return err
	}
	if codeTaken(all, p.Code, "") {
		return product.ErrDuplicateCode
	}
	return r.save(append(all, *p))
}

// Update applies patch to the product with id.
func (r *ProductRepository) Update(_ context.Context, id string, patch product.Patch) (*product.Product, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	all, err := r.load()
	if err != nil {
		return nil, err
	}
	i := indexOf(all, id)
	if i < 0 {
		return nil, product.ErrNotFound
	}
	if patch.Code != nil && codeTaken(all, *patch.Code, id) {
		return nil, product.ErrDuplicateCode
	}
	patch.Apply(&all[i])
	if err := r.save(all); err != nil {
		return nil, err
	}
	updated := all[i]
	return &updated, nil
}

// Delete removes the product with id.
func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	all, err := r.load()
	if err != nil {
		return err
	}
	i := indexOf(all, id)
	if i < 0 {
		return product.ErrNotFound
	}
	return r.save(slices.Delete(all, i, i+1))
}

func indexOf(products []product.Product, id string) int {
	return slices.IndexFunc(products, func(p product.Product) bool { return p.ID == id })
}

func codeTaken(products []product.Product, code, exceptID string) bool {
	return slices.ContainsFunc(products, func(p product.Product) bool {
		return p.Code == code && p.ID != exceptID
	})
}
