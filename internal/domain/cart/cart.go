package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// MaxQuantity caps the quantity of a single line item.
const MaxQuantity = 10_000

var (
	// ErrNotFound is returned when a requested cart does not exist.
	ErrNotFound = errors.New("cart not found")
	// ErrInvalidQuantity is returned for a quantity outside [1, MaxQuantity].
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 10000")
	// ErrQuantityLimit is returned when a merge would push a line item past
	// MaxQuantity.
	ErrQuantityLimit = errors.New("line item quantity limit exceeded")
)

// Cart is an ordered collection of line items, at most one per product.
type Cart struct {
	ID       string
	Products []LineItem
}

// LineItem is a product reference with a quantity.
type LineItem struct {
	ProductID string
	Quantity  int
}

// Add merges item into the cart: an existing line item for the same product
// has its quantity increased, otherwise item is appended.
func (c *Cart) Add(item LineItem) {
	for i := range c.Products {
		if c.Products[i].ProductID == item.ProductID {
			c.Products[i].Quantity += item.Quantity
			return
		}
	}
	c.Products = append(c.Products, item)
}

// Quantity returns the quantity of productID in the cart, or 0.
func (c *Cart) Quantity(productID string) int {
	for _, it := range c.Products {
		if it.ProductID == productID {
			return it.Quantity
		}
	}
	return 0
}

// Repository defines the storage accessor for carts.
type Repository interface {
	Create(ctx context.Context, c *Cart) error
	GetByID(ctx context.Context, id string) (*Cart, error)
	// AddItem merges item into the cart with cartID as one point update and
	// returns the stored result.
	AddItem(ctx context.Context, cartID string, item LineItem) (*Cart, error)
}

// Encode writes the cart as {"id":…,"products":[…]}.
func (c Cart) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("products")
	EncodeItems(e, c.Products)
	e.ObjEnd()
}

// Decode reads a stored cart object.
func (c *Cart) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "id":
			id, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "decode id")
			}
			c.ID = id
		case "products":
			items, err := DecodeItems(d)
			if err != nil {
				return err
			}
			c.Products = items
		default:
			return d.Skip()
		}
		return nil
	})
}

// EncodeItems writes line items as a JSON array.
func EncodeItems(e *jx.Encoder, items []LineItem) {
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("product")
		e.Str(it.ProductID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
}

// DecodeItems reads a JSON array of line items.
func DecodeItems(d *jx.Decoder) ([]LineItem, error) {
	items := []LineItem{}
	if err := d.Arr(func(d *jx.Decoder) error {
		var it LineItem
		if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			var err error
			switch string(key) {
			case "product":
				it.ProductID, err = d.Str()
			case "quantity":
				it.Quantity, err = d.Int()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		items = append(items, it)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode line items")
	}
	return items, nil
}
