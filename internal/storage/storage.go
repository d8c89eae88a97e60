// Package storage selects and opens the configured repository backend.
package storage

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/storage/file"
	"github.com/xenking/storefront/internal/storage/mongo"
	"github.com/xenking/storefront/internal/storage/postgres"
)

// Supported drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config selects a backend and holds its connection settings.
type Config struct {
	Driver        string `default:"file" usage:"storage backend: file, postgres or mongo"`
	DataDir       string `default:"data" usage:"directory of the JSON files (file driver)"`
	DatabaseURL   string `usage:"PostgreSQL connection string (postgres driver)"`
	MongoURI      string `usage:"MongoDB connection string (mongo driver)"`
	MongoDatabase string `default:"storefront" usage:"MongoDB database name (mongo driver)"`
}

// Stores is an opened backend.
type Stores struct {
	Products product.Repository
	Carts    cart.Repository

	// Ping reports backend reachability for health checks.
	Ping func(ctx context.Context) error
	// Close releases connections. It is safe to call once.
	Close func()
}

// Open connects to the backend named by cfg.Driver. Database schemas and
// indexes are created when missing.
func Open(ctx context.Context, cfg Config) (*Stores, error) {
	switch cfg.Driver {
	case "", DriverFile:
		return openFile(ctx, cfg)
	case DriverPostgres:
		return openPostgres(ctx, cfg)
	case DriverMongo:
		return openMongo(ctx, cfg)
	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func openFile(_ context.Context, cfg Config) (*Stores, error) {
	products, err := file.NewProductRepository(cfg.DataDir)
	if err != nil {
		return nil, errors.Wrap(err, "open products")
	}
	carts, err := file.NewCartRepository(cfg.DataDir)
	if err != nil {
		return nil, errors.Wrap(err, "open carts")
	}
	return &Stores{
		Products: products,
		Carts:    carts,
		Ping: func(ctx context.Context) error {
			return file.Ping(ctx, cfg.DataDir)
		},
		Close: func() {},
	}, nil
}

func openPostgres(ctx context.Context, cfg Config) (*Stores, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database url is required for the postgres driver")
	}
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "migrate")
	}
	return &Stores{
		Products: postgres.NewProductRepository(pool),
		Carts:    postgres.NewCartRepository(pool),
		Ping:     pool.Ping,
		Close:    pool.Close,
	}, nil
}

func openMongo(ctx context.Context, cfg Config) (*Stores, error) {
	if cfg.MongoURI == "" {
		return nil, errors.New("mongo uri is required for the mongo driver")
	}
	client, err := mongo.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	db := client.Database(cfg.MongoDatabase)
	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, errors.Wrap(err, "ensure indexes")
	}
	return &Stores{
		Products: mongo.NewProductRepository(db),
		Carts:    mongo.NewCartRepository(db),
		Ping: func(ctx context.Context) error {
			return mongo.Ping(ctx, client)
		},
		Close: func() {
			_ = client.Disconnect(context.Background())
		},
	}, nil
}
