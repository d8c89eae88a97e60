package file

import (
	"context"
	"path/filepath"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/cart"
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository on carts.json.
type CartRepository struct {
	c collection
}

// NewCartRepository returns a CartRepository storing its file in dir.
func NewCartRepository(dir string) (*CartRepository, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &CartRepository{
		c: collection{path: filepath.Join(dir, "carts.json")},
	}, nil
}

func (r *CartRepository) load() ([]cart.Cart, error) {
	carts := []cart.Cart{}
	err := r.c.decode(func(d *jx.Decoder) error {
		return d.Arr(func(d *jx.Decoder) error {
			var c cart.Cart
			if err := c.Decode(d); err != nil {
				return errors.Wrap(err, "decode cart")
			}
			carts = append(carts, c)
			return nil
		})
	})
	return carts, err
}

func (r *CartRepository) save(carts []cart.Cart) error {
	return r.c.encode(func(e *jx.Encoder) {
		e.ArrStart()
		for _, c := range carts {
			c.Encode(e)
		}
		e.ArrEnd()
	})
}

// Create appends c to the file.
func (r *CartRepository) Create(_ context.Context, c *cart.Cart) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	all, err := r.load()
	if err != nil {
		return err
	}
	return r.save(append(all, *c))
}

// GetByID returns the cart with id.
func (r *CartRepository) GetByID(_ context.Context, id string) (*cart.Cart, error) {
	all, err := r.load()
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(all, func(c cart.Cart) bool { return c.ID == id })
	if i < 0 {
		return nil, cart.ErrNotFound
	}
	return &all[i], nil
}

// AddItem merges item into the cart with cartID under the write lock.
func (r *CartRepository) AddItem(_ context.Context, cartID string, item cart.LineItem) (*cart.Cart, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	all, err := r.load()
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(all, func(c cart.Cart) bool { return c.ID == cartID })
	if i < 0 {
		return nil, cart.ErrNotFound
	}
	all[i].Add(item)
	if err := r.save(all); err != nil {
		return nil, err
	}
	updated := all[i]
	return &updated, nil
}
