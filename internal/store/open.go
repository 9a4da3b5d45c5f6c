package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"securesim/internal/config"
)

// Open builds the Store for cfg.Backend. The returned close func releases
// any network client and is safe to call once.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*Store, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	noop := func() {}

	switch cfg.Backend {
	case config.StoreMemory:
		return New(NewMemoryKV(), logger), noop, nil

	case config.StoreFile, "":
		kv, err := NewFileKV(cfg.DataDir, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("open file store: %w", err)
		}
		logger.Info("using file store", "path", kv.Path())
		return New(kv, logger), noop, nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			// Keep going: the breaker absorbs an outage and the game runs in memory.
			logger.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "err", err)
		}
		kv := NewBreakerKV("redis", NewRedisKV(client, cfg.RedisPrefix), logger)
		logger.Info("using redis store", "addr", cfg.RedisAddr, "prefix", cfg.RedisPrefix)
		return New(kv, logger), func() { _ = client.Close() }, nil

	case config.StorePostgres:
		pool, err := Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		pkv, err := NewPostgresKV(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		logger.Info("using postgres store")
		return New(NewBreakerKV("postgres", pkv, logger), logger), pool.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
