package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/cart"
)

const (
	insertCartSQL = `INSERT INTO carts (id) VALUES ($1)`

	lockCartSQL = `SELECT id FROM carts WHERE id = $1 FOR UPDATE`

	cartExistsSQL = `SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1)`

	listCartItemsSQL = `SELECT product_id, quantity FROM cart_items
		WHERE cart_id = $1 ORDER BY seq`

	upsertCartItemSQL = `INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Line items
// live in cart_items keyed by (cart_id, product_id).
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Create persists an empty cart.
func (r *CartRepository) Create(ctx context.Context, c *cart.Cart) error {
	if _, err := r.pool.Exec(ctx, insertCartSQL, c.ID); err != nil {
		return fmt.Errorf("creating cart %q: %w", c.ID, err)
	}
	return nil
}

// GetByID returns the cart with its line items in insertion order.
func (r *CartRepository) GetByID(ctx context.Context, id string) (*cart.Cart, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, cartExistsSQL, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("getting cart %q: %w", id, err)
	}
	if !exists {
		return nil, cart.ErrNotFound
	}
	return loadCart(ctx, r.pool, id)
}

// AddItem merges item into the cart inside one transaction. The cart row is
// locked so concurrent merges into the same cart serialize.
func (r *CartRepository) AddItem(ctx context.Context, cartID string, item cart.LineItem) (*cart.Cart, error) {
	var c *cart.Cart
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx, lockCartSQL, cartID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return cart.ErrNotFound
			}
			return fmt.Errorf("locking cart %q: %w", cartID, err)
		}
		if _, err := tx.Exec(ctx, upsertCartItemSQL, cartID, item.ProductID, item.Quantity); err != nil {
			return fmt.Errorf("merging item %q: %w", item.ProductID, err)
		}

		var err error
		c, err = loadCart(ctx, tx, cartID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func loadCart(ctx context.Context, q querier, id string) (*cart.Cart, error) {
	rows, err := q.Query(ctx, listCartItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("listing items of cart %q: %w", id, err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.LineItem, error) {
		var it cart.LineItem
		err := row.Scan(&it.ProductID, &it.Quantity)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning items of cart %q: %w", id, err)
	}
	return &cart.Cart{ID: id, Products: items}, nil
}
