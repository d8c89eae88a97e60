package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/storage"
)

const (
	bloomFPR      = 0.001
	progressEvery = 1000
)

func main() {
	var (
		cfg      storage.Config
		file     string
		parallel int
	)

	flag.StringVar(&file, "file", "", "products JSON array, optionally gzip-compressed (.gz); defaults to the built-in sample catalog")
	flag.StringVar(&cfg.Driver, "driver", storage.DriverFile, "storage backend: file, postgres or mongo")
	flag.StringVar(&cfg.DataDir, "data-dir", "data", "directory of the JSON files (file driver)")
	flag.StringVar(&cfg.DatabaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&cfg.MongoURI, "mongo-uri", "", "MongoDB connection URI (or MONGODB_URI env)")
	flag.StringVar(&cfg.MongoDatabase, "mongo-database", "storefront", "MongoDB database name")
	flag.IntVar(&parallel, "parallel", 8, "concurrent inserts")
	flag.Parse()

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.MongoURI == "" {
		cfg.MongoURI = os.Getenv("MONGODB_URI")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, cfg, file, parallel); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, cfg storage.Config, file string, parallel int) error {
	var (
		products []product.Product
		err      error
	)
	if file == "" {
		slog.Info("using built-in sample catalog")
		products, err = readProducts(bytes.NewReader(db.SeedProducts))
	} else {
		slog.Info("reading products file", slog.String("path", file))
		products, err = readProductsFile(file)
	}
	if err != nil {
		return errors.Wrap(err, "read products")
	}

	unique, dups := dedupe(products)
	for _, code := range dups {
		slog.Warn("duplicate code in input, keeping the first", slog.String("code", code))
	}

	slog.Info("opening storage", slog.String("driver", cfg.Driver))

	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer stores.Close()

	res, err := seed(ctx, stores.Products, unique, parallel)
	if err != nil {
		return errors.Wrap(err, "seed products")
	}

	slog.Info("products seeded",
		slog.Int("read", len(products)),
		slog.Int64("inserted", res.inserted),
		slog.Int64("skipped", res.skipped),
		slog.Int("duplicates", len(dups)),
	)
	return nil
}

// readProductsFile opens path, transparently decompressing .gz input.
func readProductsFile(path string) ([]product.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if filepath.Ext(path) == ".gz" {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return readProducts(r)
}

// readProducts decodes a JSON array of products, validates each one with the
// creation rules, and assigns ids to products that lack one.
func readProducts(r io.Reader) ([]product.Product, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}
	products, err := product.DecodeList(jx.DecodeBytes(data))
	if err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}

	for i := range products {
		p := &products[i]
		if err := product.ValidateCreate(product.PatchOf(*p)); err != nil {
			return nil, errors.Wrapf(err, "product %d (%s)", i, p.Code)
		}
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
	}
	return products, nil
}

// dedupe drops products whose code already appeared earlier in the input.
// The bloom filter answers the common "never seen" case; its positives are
// confirmed against the kept products.
func dedupe(products []product.Product) (unique []product.Product, dups []string) {
	filter := bloom.NewWithEstimates(uint(max(len(products), 1)), bloomFPR)
	unique = make([]product.Product, 0, len(products))

	for _, p := range products {
		if filter.TestString(p.Code) && containsCode(unique, p.Code) {
			dups = append(dups, p.Code)
			continue
		}
		filter.AddString(p.Code)
		unique = append(unique, p)
	}
	return unique, dups
}

func containsCode(products []product.Product, code string) bool {
	for _, p := range products {
		if p.Code == code {
			return true
		}
	}
	return false
}

type seedResult struct {
	inserted int64
	skipped  int64
}

// seed inserts products with at most parallel concurrent writes. Products
// whose code is already stored are skipped, so reruns are idempotent.
func seed(ctx context.Context, repo product.Repository, products []product.Product, parallel int) (seedResult, error) {
	var inserted, skipped atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))
	for _, p := range products {
		g.Go(func() error {
			taken, err := repo.CodeExists(ctx, p.Code, "")
			if err != nil {
				return errors.Wrapf(err, "check code %s", p.Code)
			}
			if !taken {
				err = repo.Create(ctx, &p)
			}
			switch {
			case taken, errors.Is(err, product.ErrDuplicateCode):
				skipped.Add(1)
				slog.Debug("product already stored", slog.String("code", p.Code))
				return nil
			case err != nil:
				return errors.Wrapf(err, "create product %s", p.Code)
			}

			if n := inserted.Add(1); n%progressEvery == 0 {
				slog.Info("seed progress", slog.Int64("inserted", n))
			}
			return nil
		})
	}

	err := g.Wait()
	return seedResult{inserted: inserted.Load(), skipped: skipped.Load()}, err
}
