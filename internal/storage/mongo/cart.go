package mongo

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/xenking/storefront/internal/domain/cart"
)

// maxMergeAttempts bounds the increment-or-push loop in AddItem.
const maxMergeAttempts = 3

type cartDoc struct {
	ID       string    `bson:"_id"`
	Products []itemDoc `bson:"products"`
}

type itemDoc struct {
	Product  string `bson:"product"`
	Quantity int    `bson:"quantity"`
}

func (d cartDoc) cart() *cart.Cart {
	c := &cart.Cart{ID: d.ID, Products: make([]cart.LineItem, 0, len(d.Products))}
	for _, it := range d.Products {
		c.Products = append(c.Products, cart.LineItem{ProductID: it.Product, Quantity: it.Quantity})
	}
	return c
}

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by MongoDB. Line items are
// embedded in the cart document.
type CartRepository struct {
	coll *mongo.Collection
}

// NewCartRepository returns a CartRepository on the carts collection of db.
func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{coll: db.Collection(cartsCollection)}
}

// Create persists an empty cart.
func (r *CartRepository) Create(ctx context.Context, c *cart.Cart) error {
	doc := cartDoc{ID: c.ID, Products: []itemDoc{}}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("creating cart %q: %w", c.ID, err)
	}
	return nil
}

// GetByID returns the cart with id.
func (r *CartRepository) GetByID(ctx context.Context, id string) (*cart.Cart, error) {
	var doc cartDoc
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart %q: %w", id, err)
	}
	return doc.cart(), nil
}

// AddItem merges item with single-document updates: it increments an
// existing line item, or pushes a new one guarded against a concurrent push
// of the same product.
func (r *CartRepository) AddItem(ctx context.Context, cartID string, item cart.LineItem) (*cart.Cart, error) {
	for range maxMergeAttempts {
		res, err := r.coll.UpdateOne(ctx,
			bson.D{{Key: "_id", Value: cartID}, {Key: "products.product", Value: item.ProductID}},
			bson.D{{Key: "$inc", Value: bson.D{{Key: "products.$.quantity", Value: item.Quantity}}}},
		)
		if err != nil {
			return nil, fmt.Errorf("incrementing item %q: %w", item.ProductID, err)
		}
		if res.MatchedCount > 0 {
			return r.GetByID(ctx, cartID)
		}

		res, err = r.coll.UpdateOne(ctx,
			bson.D{
				{Key: "_id", Value: cartID},
				{Key: "products.product", Value: bson.D{{Key: "$ne", Value: item.ProductID}}},
			},
			bson.D{{Key: "$push", Value: bson.D{{Key: "products", Value: itemDoc{
				Product:  item.ProductID,
				Quantity: item.Quantity,
			}}}}},
		)
		if err != nil {
			return nil, fmt.Errorf("pushing item %q: %w", item.ProductID, err)
		}
		if res.MatchedCount > 0 {
			return r.GetByID(ctx, cartID)
		}

		// Neither matched: the cart is gone, or another writer pushed the
		// same product between the two updates.
		if _, err := r.GetByID(ctx, cartID); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("merging item %q into cart %q: too much contention", item.ProductID, cartID)
}
