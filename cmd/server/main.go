package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/ulule/limiter/v3"

	"github.com/JonMunkholm/qbimport/internal/config"
	"github.com/JonMunkholm/qbimport/internal/core"
	"github.com/JonMunkholm/qbimport/internal/logging"
	"github.com/JonMunkholm/qbimport/internal/reports"
	"github.com/JonMunkholm/qbimport/internal/store"
	"github.com/JonMunkholm/qbimport/internal/web"
)

func main() {
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	entities, err := store.Open(ctx, cfg.Store)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer entities.Close()

	runReports, err := reports.Open(ctx, cfg.Cache)
	if err != nil {
		slog.Error("failed to open report store", "error", err)
		os.Exit(1)
	}
	defer runReports.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	service := core.NewService(entities, runReports, core.NewMetrics(reg), core.ServiceConfig{
		MaxFileSize:   cfg.Import.MaxFileSize,
		MaxConcurrent: cfg.Import.MaxConcurrent,
		MaxWaitTime:   cfg.Import.MaxWaitTime,
		Retention:     cfg.Import.Retention,
	})

	rateStore, closeRate := openRateLimitStore(ctx, cfg)
	defer closeRate()

	server := web.NewServer(service, cfg, reg, rateStore,
		web.HealthCheck{Name: "store", Check: entities.HealthCheck},
		web.HealthCheck{Name: "reports", Check: runReports.HealthCheck},
	)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForRuns(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openRateLimitStore connects the redis limiter backend when configured and
// falls back to memory if redis is unreachable.
func openRateLimitStore(ctx context.Context, cfg *config.Config) (limiter.Store, func()) {
	noop := func() {}
	if !cfg.Rate.Enabled || cfg.Rate.Storage != config.RateStorageRedis {
		return nil, noop
	}

	client, err := reports.Dial(ctx, cfg.Cache.RedisURL)
	if err != nil {
		slog.Warn("failed to connect redis for rate limiting, falling back to memory", "error", err)
		return nil, noop
	}
	rateStore, err := web.NewRateLimitStore(client)
	if err != nil {
		_ = client.Close()
		slog.Warn("failed to create redis rate limit store, falling back to memory", "error", err)
		return nil, noop
	}
	slog.Info("rate limiting backed by redis")
	return rateStore, func() { _ = client.Close() }
}
