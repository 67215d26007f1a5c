package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	flag "github.com/spf13/pflag"

	"campus-energy/internal/alerts"
	"campus-energy/internal/config"
	"campus-energy/internal/models"
	"campus-energy/internal/platform"
	"campus-energy/internal/services"
	"campus-energy/pkg/logging"
)

func main() {
	configFile := flag.String("config", os.Getenv(config.ConfigFileEnv), "YAML configuration file")
	scheduled := flag.Bool("scheduled", false, "Scan the most recent readings once instead of consuming the change stream")
	scanLimit := flag.Int("scan-limit", services.DefaultScanLimit, "Number of recent readings checked by a scheduled scan")
	flag.Parse()

	cfg, err := config.LoadConfigFrom(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if !*scheduled && !cfg.Notify.ChangeStream {
		fmt.Fprintln(os.Stderr, "Change stream is disabled; enable CHANGE_STREAM_ENABLED or run with --scheduled")
		os.Exit(1)
	}

	logger := platform.NewLogger(cfg, "energy-alerter")

	exitCode := 0
	defer func() { os.Exit(exitCode) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithRunID(ctx, uuid.NewString())

	trigger := services.TriggerStream
	if *scheduled {
		trigger = services.TriggerScheduled
	}
	logger.Info(ctx, "[ALERTER_START] Starting energy alert checker", logging.Fields{
		"version":   platform.Version,
		"trigger":   trigger,
		"transport": cfg.Notify.Transport,
	})

	metricsCollector, registry := platform.NewMetrics(cfg)
	defer platform.PushMetrics(context.Background(), cfg, logger, metricsCollector, "energy_alerter", registry)

	repo, db, err := platform.OpenRepository(cfg, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[ALERTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	publisher, err := platform.NewAlertPublisher(cfg, logger)
	if err != nil {
		logger.Fatal(ctx, "[ALERTER_ERROR] Failed to create alert publisher", logging.Fields{
			"transport": cfg.Notify.Transport,
		}, err)
	}
	defer publisher.Close()

	alertService := services.NewAlertService(
		repo,
		alerts.NewEvaluator(alerts.DefaultThresholds()),
		publisher,
		logger,
		metricsCollector,
		services.AlertConfig{
			DashboardLink: cfg.Notify.DashboardLink,
			ScanLimit:     *scanLimit,
		},
	)

	if *scheduled {
		result, err := alertService.ScanRecent(ctx)
		if result != nil {
			fmt.Printf("Readings checked: %d\n", result.ReadingsChecked)
			fmt.Printf("Alerts generated: %d\n", result.AlertsGenerated)
			fmt.Printf("Publish failures: %d\n", result.PublishFailures)
		}
		if err != nil {
			logger.Error(ctx, "[ALERTER_ERROR] Scheduled scan failed", logging.Fields{}, err)
			exitCode = 1
			return
		}
		return
	}

	consumer, err := platform.NewChangeConsumer(cfg, logger)
	if err != nil {
		logger.Fatal(ctx, "[ALERTER_ERROR] Failed to create change consumer", logging.Fields{}, err)
	}
	defer consumer.Close()

	// Offsets are committed only after a batch is fully handled, so a failed
	// publish makes the batch redeliver after restart.
	err = consumer.Run(ctx, func(ctx context.Context, events []models.ChangeEvent) error {
		_, err := alertService.HandleChanges(ctx, events)
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "[ALERTER_ERROR] Change stream consumer stopped", logging.Fields{}, err)
		exitCode = 1
		return
	}

	logger.Info(ctx, "[ALERTER_STOP] Alert checker stopped", logging.Fields{})
}
