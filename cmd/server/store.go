package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/maxischmaxi/code-preview-server/internal/config"
	"github.com/maxischmaxi/code-preview-server/internal/repositories"
	"github.com/maxischmaxi/code-preview-server/internal/repositories/memory"
	"github.com/maxischmaxi/code-preview-server/internal/repositories/mongo"
	"github.com/maxischmaxi/code-preview-server/internal/repositories/rediscache"
	"github.com/maxischmaxi/code-preview-server/internal/repositories/sqlstore"
)

var newRedisClient = func(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// openStore connects the configured backend and, when Redis is configured,
// puts the session cache in front of it.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*repositories.Store, error) {
	var (
		store *repositories.Store
		err   error
	)
	switch cfg.Store.Driver {
	case config.DriverMemory:
		store = memory.NewStore()
	case config.DriverMongo:
		client, cerr := mongo.NewClient(ctx, cfg.Store.MongoURI, cfg.Store.MongoDB)
		if cerr != nil {
			return nil, cerr
		}
		store, err = mongo.NewStore(client)
	case config.DriverSQLite, config.DriverPostgres:
		db, oerr := sqlstore.Open(cfg.Store.Driver, cfg.Store.DSN)
		if oerr != nil {
			return nil, oerr
		}
		store = sqlstore.NewStore(db)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if !cfg.Redis.CacheEnabled() {
		return store, nil
	}

	rdb := newRedisClient(cfg.Redis)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, running without session cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = rdb.Close()
		return store, nil
	}
	log.Info("session cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))

	inner := store
	return repositories.NewStore(
		rediscache.NewSessionRepo(inner.Sessions, rdb, cfg.Redis.TTL, log.Named("cache")),
		inner.Templates,
		func(ctx context.Context) error {
			return multierr.Append(rdb.Close(), inner.Close(ctx))
		},
	), nil
}
