package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrDuplicateCode is returned when a product code is already taken.
	ErrDuplicateCode = errors.New("product already exists")
)

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Title       string
	Description string
	Code        string
	Price       decimal.Decimal
	Status      bool
	Stock       int
	Category    Category
}

// SortOrder orders query results by price.
type SortOrder string

const (
	SortNone SortOrder = ""
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Query selects a window of products at the storage layer.
type Query struct {
	// Category restricts results to one category when non-empty.
	Category Category
	Sort     SortOrder
	Offset   int
	Limit    int
}

// Repository defines the storage accessor for the product catalog.
//
// List and Find return products in insertion order unless a sort order is
// requested. Find also returns the number of products matching the filter
// regardless of the window.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	Find(ctx context.Context, q Query) ([]Product, int, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	// CodeExists reports whether a product other than exceptID uses code.
	CodeExists(ctx context.Context, code, exceptID string) (bool, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, id string, patch Patch) (*Product, error)
	Delete(ctx context.Context, id string) error
}

// Notifier receives the full product list after every catalog change.
type Notifier interface {
	ProductsChanged(ctx context.Context, products []Product)
}
