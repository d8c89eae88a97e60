package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service encapsulates catalog reads, validated mutations, and change
// notification.
type Service struct {
	repo     Repository
	notifier Notifier
}

// NewService creates a product Service. A nil notifier disables change
// notification.
func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
	}
}

// List returns the window of products selected by req.
//
// Unfiltered requests slice the full catalog in memory. Filtered or sorted
// requests delegate the window to the repository.
func (s *Service) List(ctx context.Context, req PageRequest) (*Page, error) {
	if !req.Filtered() {
		all, err := s.repo.List(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "list products")
		}
		if err := req.Check(len(all)); err != nil {
			return nil, err
		}
		page := &Page{Request: req, Total: len(all), Products: []Product{}}
		if len(all) > 0 {
			start := req.Start()
			end := min(start+req.Limit, len(all))
			page.Products = all[start:end]
		}
		return page, nil
	}

	products, total, err := s.repo.Find(ctx, req.query())
	if err != nil {
		return nil, errors.Wrap(err, "find products")
	}
	if err := req.Check(total); err != nil {
		return nil, err
	}
	if products == nil {
		products = []Product{}
	}
	return &Page{Request: req, Total: total, Products: products}, nil
}

// All returns the whole catalog in insertion order.
func (s *Service) All(ctx context.Context) ([]Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// Get returns a single product by its identifier.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

// Create validates p, assigns an identifier, and persists it.
func (s *Service) Create(ctx context.Context, p Patch) (*Product, error) {
	if err := ValidateCreate(p); err != nil {
		return nil, err
	}

	taken, err := s.repo.CodeExists(ctx, *p.Code, "")
	if err != nil {
		return nil, errors.Wrap(err, "check product code")
	}
	if taken {
		return nil, ErrDuplicateCode
	}

	created := Product{ID: uuid.New().String()}
	p.Apply(&created)
	if err := s.repo.Create(ctx, &created); err != nil {
		return nil, errors.Wrap(err, "create product")
	}

	zctx.From(ctx).Info("Product created",
		zap.String("product_id", created.ID),
		zap.String("code", created.Code),
	)
	s.changed(ctx)
	return &created, nil
}

// Update applies the present fields of patch to the product with id. A
// missing id wins over a code clash: the repository reports ErrNotFound
// before it checks code uniqueness.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Product, error) {
	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, errors.Wrapf(err, "update product %s", id)
	}

	zctx.From(ctx).Info("Product updated", zap.String("product_id", id))
	s.changed(ctx)
	return updated, nil
}

// Delete removes the product with id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "delete product %s", id)
	}

	zctx.From(ctx).Info("Product deleted", zap.String("product_id", id))
	s.changed(ctx)
	return nil
}

// changed pushes the current catalog to the notifier without blocking the
// caller. Failures are logged and dropped.
func (s *Service) changed(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		products, err := s.repo.List(ctx)
		if err != nil {
			zctx.From(ctx).Warn("Reload products for notification", zap.Error(err))
			return
		}
		s.notifier.ProductsChanged(ctx, products)
	}()
}
