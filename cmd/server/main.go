package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"campus-energy/internal/aggregation"
	"campus-energy/internal/config"
	"campus-energy/internal/handlers"
	"campus-energy/internal/platform"
	"campus-energy/internal/services"
	"campus-energy/pkg/logging"
)

func main() {
	configFile := flag.String("config", os.Getenv(config.ConfigFileEnv), "YAML configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfigFrom(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := platform.NewLogger(cfg, "energy-api")

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting campus energy API server", logging.Fields{
		"version":         platform.Version,
		"server_host":     cfg.Server.Host,
		"server_port":     cfg.Server.Port,
		"db_host":         cfg.Database.Host,
		"db_name":         cfg.Database.Database,
		"archive_backend": cfg.Archive.Backend,
		"cache_enabled":   cfg.Redis.Enabled,
	})

	metricsCollector, registry := platform.NewMetrics(cfg)

	repo, db, err := platform.OpenRepository(cfg, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	store, closeStore, err := platform.OpenArchive(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to open archive store", logging.Fields{
			"backend": cfg.Archive.Backend,
		}, err)
	}
	defer closeStore(context.Background())

	buildings, err := platform.LoadRegistry(cfg)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to load building catalog", logging.Fields{
			"catalog_file": cfg.Simulation.CatalogFile,
		}, err)
	}

	responseCache := platform.NewCache(ctx, cfg, logger)
	defer responseCache.Close()

	dashboard := services.NewDashboardService(
		repo,
		store,
		buildings,
		aggregation.NewProfileBackfill(platform.NewNoiseSource(cfg)),
		responseCache,
		logger,
		metricsCollector,
		services.DashboardConfig{
			CacheTTL:        cfg.Redis.TTL,
			ArchiveCacheTTL: cfg.Redis.ArchiveTTL,
		},
	)

	energyHandler := handlers.NewEnergyHandler(dashboard, logger, metricsCollector)
	router := handlers.NewRouter(energyHandler, handlers.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
