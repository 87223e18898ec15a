package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vashistbar27/Gudage-hospital/cmd/identity"
)

// Store is a small app-level lifecycle abstraction over the identity backend.
// It exists to allow backend connections to be closed gracefully.
type Store interface {
	identity.Backend
	Close(ctx context.Context) error
}

type backendStore struct {
	identity.Backend
	close func(ctx context.Context) error
}

func (s backendStore) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// newStore opens the backend selected by cfg.Store.
func newStore(ctx context.Context, cfg Config, log Logger) (Store, error) {
	switch cfg.Store {
	case StoreMemory, "":
		log.Info("store.memory")
		return backendStore{Backend: identity.NewMemoryStore()}, nil
	case StorePostgres:
		return newPostgresStore(ctx, cfg, log)
	case StoreMongo:
		return newMongoStore(ctx, cfg, log)
	case StoreRedis:
		return newRedisStore(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Store)
	}
}

func newPostgresStore(ctx context.Context, cfg Config, log Logger) (Store, error) {
	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: postgres: %w", err)
	}
	if cfg.DBMigrate {
		if err := MigrateDB(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("store.postgres.migrated")
	}

	// The app owns the pool; PostgresStore never closes it.
	st, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("store.postgres", "max_conns", pool.Config().MaxConns)
	return backendStore{
		Backend: st,
		close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}

func newMongoStore(ctx context.Context, cfg Config, log Logger) (Store, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.MongoURI).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("store: mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("store: mongo ping: %w", err)
	}

	st, err := identity.NewMongoStore(ctx, client.Database(cfg.MongoDatabase))
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Info("store.mongo", "database", cfg.MongoDatabase)
	return backendStore{Backend: st, close: client.Disconnect}, nil
}

func newRedisStore(ctx context.Context, cfg Config, log Logger) (Store, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("store: redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("store: redis ping: %w", err)
	}

	st, err := identity.NewRedisStore(rdb)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}

	log.Info("store.redis", "addr", opt.Addr, "db", opt.DB)
	return backendStore{
		Backend: st,
		close:   func(context.Context) error { return rdb.Close() },
	}, nil
}
