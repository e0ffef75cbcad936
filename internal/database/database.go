package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/kkkkikiki/coupon-ledger/internal/config"
	"github.com/kkkkikiki/coupon-ledger/internal/ledger"
	"github.com/kkkkikiki/coupon-ledger/internal/repository"
	"github.com/kkkkikiki/coupon-ledger/internal/repository/memory"
	mongostore "github.com/kkkkikiki/coupon-ledger/internal/repository/mongo"
)

// Open connects the configured storage backend, applies its schema or
// indexes and returns it as a ledger.Store
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (ledger.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, log)
	case config.DriverMongo:
		return openMongo(ctx, cfg, log)
	case config.DriverMemory:
		log.Warn("Using in-memory store, data is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, log *zap.Logger) (ledger.Store, error) {
	// Connect to PostgreSQL
	postgres, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// Configure connection pool
	postgres.SetMaxOpenConns(cfg.Database.MaxConns)
	postgres.SetMaxIdleConns(cfg.Database.MinConns)
	postgres.SetConnMaxLifetime(time.Hour)

	// Test PostgreSQL connection
	if err := postgres.PingContext(ctx); err != nil {
		postgres.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	store := repository.NewStore(postgres)
	if err := store.Migrate(ctx); err != nil {
		postgres.Close()
		return nil, err
	}

	log.Info("Successfully connected to PostgreSQL",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Name))

	return store, nil
}

func openMongo(ctx context.Context, cfg *config.Config, log *zap.Logger) (ledger.Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	store := mongostore.New(client, cfg.Mongo.Database)
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}

	log.Info("Successfully connected to MongoDB", zap.String("database", cfg.Mongo.Database))

	return store, nil
}
