package reports

import (
	"context"

	"github.com/JonMunkholm/qbimport/internal/config"
	"github.com/JonMunkholm/qbimport/internal/core"
)

// Store is a report store with lifecycle operations.
type Store interface {
	core.ReportStore
	HealthCheck(ctx context.Context) error
	Close() error
}

// Open returns the Redis store when RedisURL is set, otherwise Memory.
func Open(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	if cfg.RedisURL == "" {
		return NewMemory(cfg.ReportTTL), nil
	}
	return NewRedis(ctx, cfg.RedisURL, cfg.ReportTTL)
}
