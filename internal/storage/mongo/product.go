package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/storefront/internal/domain/product"
)

// productDoc is the stored form of a product. Seq comes from the products
// counter and records insertion order.
type productDoc struct {
	ID          string               `bson:"_id"`
	Seq         int64                `bson:"seq"`
	Title       string               `bson:"title"`
	Description string               `bson:"description"`
	Code        string               `bson:"code"`
	Price       primitive.Decimal128 `bson:"price"`
	Status      bool                 `bson:"status"`
	Stock       int                  `bson:"stock"`
	Category    string               `bson:"category"`
	CreatedAt   time.Time            `bson:"created_at"`
}

func (d productDoc) product() (product.Product, error) {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return product.Product{}, fmt.Errorf("parsing price of %q: %w", d.ID, err)
	}
	return product.Product{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Code:        d.Code,
		Price:       price,
		Status:      d.Status,
		Stock:       d.Stock,
		Category:    product.Category(d.Category),
	}, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("converting price %s: %w", d, err)
	}
	return v, nil
}

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by MongoDB.
type ProductRepository struct {
	coll     *mongo.Collection
	counters *mongo.Collection
	now      func() time.Time
}

// NewProductRepository returns a ProductRepository on the products
// collection of db.
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{
		coll:     db.Collection(productsCollection),
		counters: db.Collection(countersCollection),
		now:      time.Now,
	}
}

// List returns all products in insertion order.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	return r.find(ctx, bson.D{}, opts)
}

// Find returns one window of the filtered, sorted collection together with
// the number of products matching the filter.
func (r *ProductRepository) Find(ctx context.Context, q product.Query) ([]product.Product, int, error) {
	filter := bson.D{}
	if q.Category != "" {
		filter = bson.D{{Key: "category", Value: string(q.Category)}}
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("counting products: %w", err)
	}

	sort := bson.D{}
	switch q.Sort {
	case product.SortAsc:
		sort = append(sort, bson.E{Key: "price", Value: 1})
	case product.SortDesc:
		sort = append(sort, bson.E{Key: "price", Value: -1})
	}
	sort = append(sort, bson.E{Key: "seq", Value: 1})

	opts := options.Find().
		SetSort(sort).
		SetSkip(int64(q.Offset)).
		SetLimit(int64(q.Limit))
	products, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return products, int(total), nil
}

func (r *ProductRepository) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]product.Product, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("finding products: %w", err)
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("reading products: %w", err)
	}

	products := make([]product.Product, 0, len(docs))
	for _, d := range docs {
		p, err := d.product()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	var doc productDoc
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	p, err := doc.product()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CodeExists reports whether a product other than exceptID uses code.
func (r *ProductRepository) CodeExists(ctx context.Context, code, exceptID string) (bool, error) {
	filter := bson.D{
		{Key: "code", Value: code},
		{Key: "_id", Value: bson.D{{Key: "$ne", Value: exceptID}}},
	}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("checking code %q: %w", code, err)
	}
	return n > 0, nil
}

// Create inserts p. The unique index on code is reported as
// product.ErrDuplicateCode.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return err
	}
	seq, err := nextSeq(ctx, r.counters, productsCollection)
	if err != nil {
		return err
	}
	now := r.now()
	doc := productDoc{
		ID:          p.ID,
		Seq:         seq,
		Title:       p.Title,
		Description: p.Description,
		Code:        p.Code,
		Price:       price,
		Status:      p.Status,
		Stock:       p.Stock,
		Category:    string(p.Category),
		CreatedAt:   now.UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return product.ErrDuplicateCode
		}
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// Update sets the present fields of patch in one document update and returns
// the stored result.
func (r *ProductRepository) Update(ctx context.Context, id string, patch product.Patch) (*product.Product, error) {
	set, err := patchFields(patch)
	if err != nil {
		return nil, err
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc productDoc
	err = r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
		opts,
	).Decode(&doc)
	switch {
	case err == nil:
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, product.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, product.ErrDuplicateCode
	default:
		return nil, fmt.Errorf("updating product %q: %w", id, err)
	}

	p, err := doc.product()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func patchFields(patch product.Patch) (bson.D, error) {
	var set bson.D
	if patch.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *patch.Title})
	}
	if patch.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *patch.Description})
	}
	if patch.Code != nil {
		set = append(set, bson.E{Key: "code", Value: *patch.Code})
	}
	if patch.Price != nil {
		price, err := toDecimal128(*patch.Price)
		if err != nil {
			return nil, err
		}
		set = append(set, bson.E{Key: "price", Value: price})
	}
	if patch.Status != nil {
		set = append(set, bson.E{Key: "status", Value: *patch.Status})
	}
	if patch.Stock != nil {
		set = append(set, bson.E{Key: "stock", Value: *patch.Stock})
	}
	if patch.Category != nil {
		set = append(set, bson.E{Key: "category", Value: string(*patch.Category)})
	}
	return set, nil
}

// Delete removes the product with id.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return product.ErrNotFound
	}
	return nil
}
