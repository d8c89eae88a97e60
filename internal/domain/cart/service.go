package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/product"
)

// Service encapsulates cart creation and product merging.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{
		carts:    carts,
		products: products,
	}
}

// Create persists a new empty cart.
func (s *Service) Create(ctx context.Context) (*Cart, error) {
	c := &Cart{
		ID:       uuid.New().String(),
		Products: []LineItem{},
	}
	if err := s.carts.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create cart")
	}
	zctx.From(ctx).Info("Cart created", zap.String("cart_id", c.ID))
	return c, nil
}

// Get returns the cart with id.
func (s *Service) Get(ctx context.Context, id string) (*Cart, error) {
	return s.carts.GetByID(ctx, id)
}

// AddProduct merges quantity units of productID into the cart. Both the cart
// and the product must exist, and the merged line item may not exceed
// MaxQuantity.
func (s *Service) AddProduct(ctx context.Context, cartID, productID string, quantity int) (*Cart, error) {
	if quantity < 1 || quantity > MaxQuantity {
		return nil, ErrInvalidQuantity
	}
	current, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, errors.Wrapf(err, "get cart %s", cartID)
	}
	// Concurrent merges can each pass this check, so the cap is approximate.
	if current.Quantity(productID)+quantity > MaxQuantity {
		return nil, ErrQuantityLimit
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, errors.Wrapf(err, "get product %s", productID)
	}

	c, err := s.carts.AddItem(ctx, cartID, LineItem{ProductID: productID, Quantity: quantity})
	if err != nil {
		return nil, errors.Wrapf(err, "add product %s to cart %s", productID, cartID)
	}

	zctx.From(ctx).Info("Product added to cart",
		zap.String("cart_id", cartID),
		zap.String("product_id", productID),
		zap.Int("quantity", quantity),
	)
	return c, nil
}
