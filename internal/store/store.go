// Package store opens the entity store selected by configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/qbimport/internal/config"
	"github.com/JonMunkholm/qbimport/internal/core"
	"github.com/JonMunkholm/qbimport/internal/store/memory"
	"github.com/JonMunkholm/qbimport/internal/store/postgres"
	"github.com/JonMunkholm/qbimport/internal/store/sqlite"
)

// Store is an entity store with lifecycle operations.
type Store interface {
	core.Store
	Migrate(ctx context.Context) error
	Reset(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*postgres.Store)(nil)
	_ Store = (*sqlite.Store)(nil)
)

// Open connects to the configured driver and, when AutoMigrate is set,
// creates the entity tables.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case config.DriverMemory, "":
		s = memory.New()
	case config.DriverPostgres:
		s, err = postgres.New(ctx, cfg)
	case config.DriverSQLite:
		s, err = sqlite.New(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	slog.Info("store opened", "driver", driverName(cfg.Driver), "auto_migrate", cfg.AutoMigrate)
	return s, nil
}

func driverName(d string) string {
	if d == "" {
		return config.DriverMemory
	}
	return d
}
