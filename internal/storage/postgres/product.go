package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/product"
)

const productColumns = `id, title, description, code, price, status, stock, category`

const (
	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY seq`

	countProductsSQL = `SELECT count(*) FROM products WHERE ($1 = '' OR category = $1)`

	findProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE ($1 = '' OR category = $1)
		ORDER BY %s
		LIMIT $2 OFFSET $3`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	codeExistsSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE code = $1 AND id <> $2)`

	insertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	updateProductSQL = `UPDATE products SET
		title       = COALESCE($2, title),
		description = COALESCE($3, description),
		code        = COALESCE($4, code),
		price       = COALESCE($5, price),
		status      = COALESCE($6, status),
		stock       = COALESCE($7, stock),
		category    = COALESCE($8, category)
		WHERE id = $1
		RETURNING ` + productColumns

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

// orderBy maps a sort order to a fixed ORDER BY clause. Insertion order
// breaks ties so equal prices keep a stable order.
var orderBy = map[product.SortOrder]string{
	product.SortNone: "seq",
	product.SortAsc:  "price ASC, seq",
	product.SortDesc: "price DESC, seq",
}

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products in insertion order.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Find returns one window of the filtered, sorted collection together with
// the number of products matching the filter.
func (r *ProductRepository) Find(ctx context.Context, q product.Query) ([]product.Product, int, error) {
	clause, ok := orderBy[q.Sort]
	if !ok {
		return nil, 0, fmt.Errorf("unsupported sort order %q", q.Sort)
	}
	category := string(q.Category)

	var total int
	if err := r.pool.QueryRow(ctx, countProductsSQL, category).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting products: %w", err)
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(findProductsSQL, clause), category, q.Limit, q.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("finding products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, 0, fmt.Errorf("finding products: %w", err)
	}
	return products, total, nil
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// CodeExists reports whether a product other than exceptID uses code.
func (r *ProductRepository) CodeExists(ctx context.Context, code, exceptID string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, codeExistsSQL, code, exceptID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking code %q: %w", code, err)
	}
	return exists, nil
}

// Create inserts p. The UNIQUE constraint on code is reported as
// product.ErrDuplicateCode.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, insertProductSQL,
		p.ID, p.Title, p.Description, p.Code, p.Price, p.Status, p.Stock, string(p.Category),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return product.ErrDuplicateCode
		}
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// Update applies the present fields of patch in a single statement and
// returns the stored result.
func (r *ProductRepository) Update(ctx context.Context, id string, patch product.Patch) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, updateProductSQL, id,
		patch.Title, patch.Description, patch.Code, patch.Price,
		patch.Status, patch.Stock, (*string)(patch.Category),
	)
	if err != nil {
		return nil, fmt.Errorf("updating product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	switch {
	case err == nil:
		return &p, nil
	case errors.Is(err, pgx.ErrNoRows):
		return nil, product.ErrNotFound
	case isUniqueViolation(err):
		return nil, product.ErrDuplicateCode
	default:
		return nil, fmt.Errorf("updating product %q: %w", id, err)
	}
}

// Delete removes the product with id.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p        product.Product
		category string
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Code,
		&p.Price, &p.Status, &p.Stock, &category,
	)
	if err != nil {
		return product.Product{}, fmt.Errorf("scanning product row: %w", err)
	}
	p.Category = product.Category(category)
	return p, nil
}
