package core

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker"

	"budgetcore/internal/config"
	cachememory "budgetcore/internal/infra/cache/memory"
	"budgetcore/internal/infra/cache/sqlite"
	"budgetcore/internal/infra/remote/breaker"
	remotememory "budgetcore/internal/infra/remote/memory"
	"budgetcore/internal/infra/remote/postgres"
	"budgetcore/internal/infra/remote/s3"
	"budgetcore/pkg/domain"
)

// OpenLocalCache opens the cache selected by cfg.CacheDriver. The returned
// close function is never nil.
func OpenLocalCache(cfg config.Config) (domain.LocalCache, func() error, error) {
	switch cfg.CacheDriver {
	case config.CacheMemory:
		return cachememory.New(), noClose, nil
	case config.CacheSQLite, "":
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache driver %s", cfg.CacheDriver)
	}
}

// OpenRemoteStore opens the remote store selected by cfg.RemoteDriver behind
// a circuit breaker. It returns a nil store for the "none" driver.
func OpenRemoteStore(ctx context.Context, cfg config.Config, logger Logger) (domain.RemoteStore, func() error, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	var (
		inner   domain.RemoteStore
		closeFn = noClose
	)
	switch cfg.RemoteDriver {
	case config.RemoteNone, "":
		return nil, noClose, nil
	case config.RemoteMemory:
		inner = remotememory.New()
	case config.RemotePostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		inner, closeFn = store, store.Close
	case config.RemoteS3:
		store, err := s3.New(ctx, s3.Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		inner = store
	default:
		return nil, nil, fmt.Errorf("unknown remote driver %s", cfg.RemoteDriver)
	}
	wrapped := breaker.New(inner, breaker.Settings{
		Name:        "remote-" + cfg.RemoteDriver,
		MaxFailures: cfg.BreakerFailures,
		Timeout:     cfg.BreakerTimeout,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("remote circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return wrapped, closeFn, nil
}

func noClose() error { return nil }
