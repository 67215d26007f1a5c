package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	flag "github.com/spf13/pflag"

	"campus-energy/internal/config"
	"campus-energy/internal/platform"
	"campus-energy/internal/services"
	"campus-energy/pkg/logging"
)

func main() {
	configFile := flag.String("config", os.Getenv(config.ConfigFileEnv), "YAML configuration file")
	once := flag.Bool("once", false, "Run a single tick and exit")
	purge := flag.Bool("purge", false, "Remove readings past their retention before simulating")
	interval := flag.Duration("interval", 0, "Tick interval (overrides SIMULATION_INTERVAL)")
	seedHours := flag.Int("seed-hours", 0, "Store hourly history for this many hours before simulating")
	flag.Parse()

	cfg, err := config.LoadConfigFrom(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *interval > 0 {
		cfg.Simulation.Interval = *interval
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := platform.NewLogger(cfg, "energy-simulator")

	exitCode := 0
	defer func() { os.Exit(exitCode) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithRunID(ctx, uuid.NewString())

	logger.Info(ctx, "[SIMULATOR_START] Starting energy reading simulator", logging.Fields{
		"version":        platform.Version,
		"once":           *once,
		"purge":          *purge,
		"seed_hours":     *seedHours,
		"interval":       cfg.Simulation.Interval.String(),
		"retention_days": cfg.Simulation.RetentionDays,
		"change_stream":  cfg.Notify.ChangeStream,
	})

	metricsCollector, registry := platform.NewMetrics(cfg)
	defer platform.PushMetrics(context.Background(), cfg, logger, metricsCollector, "energy_simulator", registry)

	repo, db, err := platform.OpenRepository(cfg, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[SIMULATOR_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	buildings, err := platform.LoadRegistry(cfg)
	if err != nil {
		logger.Fatal(ctx, "[SIMULATOR_ERROR] Failed to load building catalog", logging.Fields{}, err)
	}

	simulator, err := platform.NewSimulator(cfg, platform.NewNoiseSource(cfg))
	if err != nil {
		logger.Fatal(ctx, "[SIMULATOR_ERROR] Failed to create simulator", logging.Fields{}, err)
	}

	changes, err := platform.NewChangePublisher(cfg)
	if err != nil {
		logger.Fatal(ctx, "[SIMULATOR_ERROR] Failed to create change publisher", logging.Fields{}, err)
	}
	defer changes.Close()

	simulationService := services.NewSimulationService(repo, buildings, simulator, changes, logger, metricsCollector, services.SimulationConfig{
		Retention:   cfg.Simulation.Retention(),
		Concurrency: cfg.Simulation.Concurrency,
	})

	if *purge {
		removed, err := simulationService.Purge(ctx)
		if err != nil {
			logger.Error(ctx, "[PURGE_ERROR] Purge failed", logging.Fields{}, err)
		} else {
			fmt.Printf("Purged %d expired readings\n", removed)
		}
	}

	if *seedHours > 0 {
		inserted, err := simulationService.Seed(ctx, *seedHours)
		if err != nil {
			logger.Error(ctx, "[SEED_ERROR] Seeding history failed", logging.Fields{}, err)
			exitCode = 1
			return
		}
		fmt.Printf("Seeded %d historical readings\n", inserted)
	}

	if !*once {
		err := simulationService.Run(ctx, cfg.Simulation.Interval)
		if err != nil && ctx.Err() == nil {
			logger.Error(ctx, "[SIMULATOR_ERROR] Simulation loop stopped", logging.Fields{}, err)
			exitCode = 1
			return
		}
		logger.Info(ctx, "[SIMULATOR_STOP] Simulator stopped", logging.Fields{})
		return
	}

	result, err := simulationService.RunTick(ctx)
	if err != nil {
		logger.Error(ctx, "[SIMULATOR_ERROR] Simulation tick failed", logging.Fields{}, err)
		exitCode = 1
		return
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("SIMULATION TICK COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Timestamp:  %s\n", result.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Generated:  %d\n", result.Generated)
	fmt.Printf("Failed:     %d\n", result.Failed)
	fmt.Printf("Duration:   %v\n", result.Duration)
	for _, b := range result.Buildings {
		if b.Error != "" {
			fmt.Printf("  - %s: %s\n", b.BuildingID, b.Error)
		}
	}
}
