// Package storage selects and opens the configured store driver.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/docqueue/internal/config"
	"github.com/phrazzld/docqueue/internal/platform/boltstore"
	"github.com/phrazzld/docqueue/internal/platform/redisstore"
	"github.com/phrazzld/docqueue/internal/store"
)

// Supported drivers.
const (
	DriverRedis = "redis"
	DriverBolt  = "bolt"
)

// Open opens the driver named by cfg.Driver. Both drivers verify
// reachability before returning, so an unusable store fails startup.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (store.KeyValueStore, error) {
	log := logger.With("component", "store", "driver", cfg.Driver)

	switch cfg.Driver {
	case DriverRedis:
		return redisstore.New(ctx, cfg, log)

	case DriverBolt:
		kv, err := boltstore.Open(cfg.BoltPath, boltstore.Options{}, log)
		if err != nil {
			return nil, err
		}
		if err := kv.Ping(ctx); err != nil {
			_ = kv.Close()
			return nil, err
		}
		return kv, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
