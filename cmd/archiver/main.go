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

	"campus-energy/internal/archive"
	"campus-energy/internal/config"
	"campus-energy/internal/platform"
	"campus-energy/internal/services"
	"campus-energy/pkg/logging"
)

func main() {
	configFile := flag.String("config", os.Getenv(config.ConfigFileEnv), "YAML configuration file")
	date := flag.String("date", "", "Day to archive (YYYY-MM-DD); defaults to yesterday in UTC")
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

	logger := platform.NewLogger(cfg, "energy-archiver")

	exitCode := 0
	defer func() { os.Exit(exitCode) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithRunID(ctx, uuid.NewString())

	logger.Info(ctx, "[ARCHIVER_START] Starting daily archiver", logging.Fields{
		"version": platform.Version,
		"date":    *date,
		"backend": cfg.Archive.Backend,
	})

	metricsCollector, registry := platform.NewMetrics(cfg)
	defer platform.PushMetrics(context.Background(), cfg, logger, metricsCollector, "energy_archiver", registry)

	repo, db, err := platform.OpenRepository(cfg, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[ARCHIVER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	store, closeStore, err := platform.OpenArchive(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "[ARCHIVER_ERROR] Failed to open archive store", logging.Fields{
			"backend": cfg.Archive.Backend,
		}, err)
	}
	defer closeStore(context.Background())

	archiveService := services.NewArchiveService(repo, store, logger, metricsCollector, services.ArchiveConfig{
		Concurrency: cfg.Archive.Concurrency,
	})

	var result *services.ArchiveResult
	if *date == "" {
		result, err = archiveService.ArchiveYesterday(ctx)
	} else {
		day, perr := archive.ParseDate(*date)
		if perr != nil {
			fmt.Fprintf(os.Stderr, "%v\n", perr)
			exitCode = 2
			return
		}
		result, err = archiveService.ArchiveDay(ctx, day)
	}
	if err != nil {
		logger.Error(ctx, "[ARCHIVER_ERROR] Archival failed", logging.Fields{}, err)
		exitCode = 1
		return
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("ARCHIVAL COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Date:                %s\n", result.Date)
	fmt.Printf("Buildings Processed: %d\n", result.BuildingsProcessed)
	fmt.Printf("Total Records:       %d\n", result.TotalRecords)
	fmt.Printf("Summary Written:     %t\n", result.SummaryWritten)
	fmt.Printf("Duration:            %v\n", result.Duration)

	if len(result.Failed) > 0 {
		fmt.Printf("\nFailed buildings (%d): %s\n", len(result.Failed), strings.Join(result.Failed, ", "))
		exitCode = 1
	}
}
