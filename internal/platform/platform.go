// Package platform builds the collaborators shared by the campus-energy
// binaries from a loaded configuration.
package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"campus-energy/internal/archive"
	"campus-energy/internal/cache"
	"campus-energy/internal/config"
	"campus-energy/internal/notify"
	"campus-energy/internal/registry"
	"campus-energy/internal/repository"
	"campus-energy/internal/services"
	"campus-energy/internal/simulation"
	"campus-energy/pkg/database"
	"campus-energy/pkg/logging"
	"campus-energy/pkg/metrics"
)

// Version is reported in every log line
const Version = "1.0.0"

// NewLogger creates the structured logger for service
func NewLogger(cfg *config.Config, service string) *logging.StructuredLogger {
	return logging.NewStructuredLogger(service, Version, logging.ParseLevel(cfg.Logging.Level))
}

// NewMetrics creates a collector on a private registry. Batch commands push
// the registry on exit; the server exposes it on /metrics.
func NewMetrics(cfg *config.Config) (*metrics.Collector, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return metrics.NewCollector(cfg.Metrics.Namespace, reg), reg
}

// PushMetrics pushes reg to the configured Pushgateway. Failures are logged
// and counted but never fail the command.
func PushMetrics(ctx context.Context, cfg *config.Config, logger *logging.StructuredLogger, m *metrics.Collector, job string, reg prometheus.Gatherer) {
	services.BestEffort(ctx, logger, m, "metrics_push", func(ctx context.Context) error {
		pushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return metrics.Push(pushCtx, cfg.Metrics.PushgatewayURL, job, reg)
	})
}

// OpenRepository connects to PostgreSQL and returns the reading repository
func OpenRepository(cfg *config.Config, logger *logging.StructuredLogger, m *metrics.Collector) (repository.ReadingRepository, *database.PostgresDB, error) {
	db, err := database.NewPostgresDB(cfg.Database.PostgresConfig(), logger, m)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewReadingRepository(db, logger, m), db, nil
}

// Closer releases a backend
type Closer func(context.Context) error

func noopCloser(context.Context) error { return nil }

// OpenArchive opens the configured blob store
func OpenArchive(ctx context.Context, cfg *config.Config) (archive.Store, Closer, error) {
	switch cfg.Archive.Backend {
	case config.ArchiveGridFS:
		store, err := archive.NewGridFSStore(ctx, cfg.Archive.MongoURI, cfg.Archive.MongoDatabase, cfg.Archive.Bucket)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.ArchiveFS:
		store, err := archive.NewFSStore(cfg.Archive.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, noopCloser, nil
	default:
		return nil, nil, fmt.Errorf("unknown archive backend %q", cfg.Archive.Backend)
	}
}

// NewAlertPublisher creates the publisher for the configured transport
func NewAlertPublisher(cfg *config.Config, logger *logging.StructuredLogger) (notify.Publisher, error) {
	switch cfg.Notify.Transport {
	case config.TransportKafka:
		p, err := notify.NewKafkaPublisher(kafkaWriterConfig(cfg, cfg.Kafka.AlertTopic))
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.TransportNATS:
		p, err := notify.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.TransportLog:
		return notify.NewLogPublisher(logger), nil
	default:
		return nil, fmt.Errorf("unknown alert transport %q", cfg.Notify.Transport)
	}
}

// NewChangePublisher creates the change-stream publisher, or a no-op one
// when the change stream is disabled
func NewChangePublisher(cfg *config.Config) (notify.ChangePublisher, error) {
	if !cfg.Notify.ChangeStream {
		return notify.NopChangePublisher{}, nil
	}
	p, err := notify.NewKafkaChangePublisher(kafkaWriterConfig(cfg, cfg.Kafka.ChangeTopic))
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NewChangeConsumer creates the alert checker's change-stream consumer
func NewChangeConsumer(cfg *config.Config, logger *logging.StructuredLogger) (*notify.KafkaChangeConsumer, error) {
	return notify.NewKafkaChangeConsumer(notify.ConsumerConfig{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       cfg.Kafka.ChangeTopic,
		GroupID:     cfg.Kafka.GroupID,
		BatchSize:   cfg.Kafka.BatchSize,
		PollTimeout: cfg.Kafka.PollTimeout,
	}, logger)
}

func kafkaWriterConfig(cfg *config.Config, topic string) notify.KafkaConfig {
	return notify.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        topic,
		RequiredAcks: cfg.Kafka.RequiredAcks,
		BatchTimeout: cfg.Kafka.BatchTimeout,
	}
}

// NewCache connects to Redis when enabled. An unreachable Redis disables
// caching instead of failing startup.
func NewCache(ctx context.Context, cfg *config.Config, logger *logging.StructuredLogger) cache.Cache {
	if !cfg.Redis.Enabled {
		return cache.Nop{}
	}

	c, err := cache.NewRedisCache(ctx, cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		logger.Warn(ctx, "[CACHE_DISABLED] Redis unavailable, responses will not be cached", logging.Fields{
			"addr":  cfg.Redis.Addr,
			"error": err.Error(),
		})
		return cache.Nop{}
	}
	return c
}

// LoadRegistry loads the building catalog, falling back to the built-in one
func LoadRegistry(cfg *config.Config) (*registry.Registry, error) {
	return registry.Load(cfg.Simulation.CatalogFile)
}

// NewNoiseSource returns a seeded source when a seed is configured
func NewNoiseSource(cfg *config.Config) simulation.Source {
	if cfg.Simulation.Seed != 0 {
		return simulation.NewSeededSource(cfg.Simulation.Seed)
	}
	return simulation.NewTimeSource()
}

// NewSimulator creates the reading simulator for the configured location
func NewSimulator(cfg *config.Config, noise simulation.Source) (*simulation.Simulator, error) {
	loc, err := time.LoadLocation(cfg.Simulation.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to load simulation location: %w", err)
	}
	return simulation.NewSimulator(noise, simulation.WithLocation(loc)), nil
}
