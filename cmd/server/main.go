package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bcnelson/ioc-dashboard/internal/api"
	"github.com/bcnelson/ioc-dashboard/internal/config"
	"github.com/bcnelson/ioc-dashboard/internal/feed"
	"github.com/bcnelson/ioc-dashboard/internal/logging"
	"github.com/bcnelson/ioc-dashboard/internal/metrics"
	"github.com/bcnelson/ioc-dashboard/internal/service"
	"github.com/bcnelson/ioc-dashboard/internal/storage"
	"github.com/bcnelson/ioc-dashboard/internal/storage/memory"
	"github.com/bcnelson/ioc-dashboard/internal/storage/sql"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Initialize storage
	var store storage.Storage
	if cfg.UseMemoryStore() {
		store = memory.New()
	} else {
		if cfg.Database.Driver == "sqlite3" {
			if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0755); err != nil {
				slog.Error("failed to create data directory", "error", err)
				os.Exit(1)
			}
		}
		sqlStore, err := sql.New(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			slog.Error("failed to initialize storage", "driver", cfg.Database.Driver, "error", err)
			os.Exit(1)
		}
		store = sqlStore
	}
	defer store.Close()

	// Initialize feed fetcher (or file shim for local development)
	format, err := feed.ParseFormat(cfg.Feed.Format)
	if err != nil {
		slog.Error("invalid feed format", "error", err)
		os.Exit(1)
	}
	var fetcher feed.Fetcher
	if cfg.UseFileShim() {
		slog.Info("using local feed file", "path", cfg.Feed.File)
		fetcher = feed.NewFileShim(cfg.Feed.File, format)
	} else {
		fetcher = feed.NewHTTPFetcher(cfg.Feed.URL, format, cfg.Feed.Timeout)
	}

	// Metrics
	var gatherer prometheus.Gatherer
	var reg prometheus.Registerer
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		gatherer, reg = registry, registry
	}

	// Initialize refresh service
	refreshService := service.NewRefreshService(store, fetcher, cfg.Feed.Sources, metrics.New(reg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := refreshService.Start(ctx, cfg.Refresh.Interval); err != nil {
		slog.Error("failed to start refresh service", "error", err)
		os.Exit(1)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(refreshService, gatherer),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("starting IOC dashboard",
		"addr", "http://"+cfg.Server.Addr(),
		"feed", fetcher.Name(),
		"store", cfg.Database.Driver,
		"refresh_interval", cfg.Refresh.Interval.String(),
	)

	// Start server in goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// SIGHUP triggers a manual refresh; SIGINT/SIGTERM shut down.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigs {
		if sig == syscall.SIGHUP {
			slog.Info("manual refresh requested by signal")
			go refreshService.RefreshNow(ctx)
			continue
		}
		break
	}

	slog.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	cancel()
	refreshService.Stop()

	slog.Info("server stopped")
}
