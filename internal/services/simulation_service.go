package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"campus-energy/internal/models"
	"campus-energy/internal/notify"
	"campus-energy/internal/registry"
	"campus-energy/internal/repository"
	"campus-energy/internal/simulation"
	"campus-energy/pkg/logging"
	"campus-energy/pkg/metrics"
)

// SimulationConfig tunes a simulation run
type SimulationConfig struct {
	// Retention is how long a reading is kept before it may be purged
	Retention   time.Duration
	Concurrency int
	Retry       RetryPolicy
	// Clock stamps each tick; nil means time.Now
	Clock func() time.Time
}

// SimulationService generates one reading per catalogued building per tick
// and persists it. It is the ingestion side of the platform.
type SimulationService struct {
	repo      repository.ReadingRepository
	registry  *registry.Registry
	simulator *simulation.Simulator
	changes   notify.ChangePublisher
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
	cfg       SimulationConfig
	now       func() time.Time
	newID     func() string
}

// BuildingOutcome reports what a run did for one building
type BuildingOutcome struct {
	BuildingID string `json:"buildingId"`
	Count      int    `json:"count"`
	Error      string `json:"error,omitempty"`
}

// TickResult contains the results of one simulation tick
type TickResult struct {
	Timestamp time.Time         `json:"timestamp"`
	Readings  []models.Reading  `json:"readings"`
	Buildings []BuildingOutcome `json:"buildings"`
	Generated int               `json:"generated"`
	Failed    int               `json:"failed"`
	Duration  time.Duration     `json:"duration"`
}

// NewSimulationService creates a new simulation service. changes may be nil
// when nothing consumes the change stream.
func NewSimulationService(
	repo repository.ReadingRepository,
	reg *registry.Registry,
	simulator *simulation.Simulator,
	changes notify.ChangePublisher,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
	cfg SimulationConfig,
) *SimulationService {
	if changes == nil {
		changes = notify.NopChangePublisher{}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = reg.Len()
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = DefaultRetryPolicy
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &SimulationService{
		repo:      repo,
		registry:  reg,
		simulator: simulator,
		changes:   changes,
		logger:    logger,
		metrics:   metricsCollector,
		cfg:       cfg,
		now:       cfg.Clock,
		newID:     uuid.NewString,
	}
}

// RunTick simulates and stores a reading for every building at the current
// instant. A building that fails is reported with count 0; the tick itself
// only fails when ctx is already done.
func (s *SimulationService) RunTick(ctx context.Context) (*TickResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timer := s.metrics.NewTimer(s.metrics.SimulationDuration)
	at := s.now().UTC().Truncate(time.Second)
	buildings := s.registry.All()

	s.logger.Info(ctx, "[SIMULATION_START] Starting simulation tick", logging.Fields{
		"stage":     "INITIALIZATION",
		"timestamp": at,
		"buildings": len(buildings),
	})

	outcomes := make([]BuildingOutcome, len(buildings))
	stored := make([]*models.Reading, len(buildings))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, b := range buildings {
		i, b := i, b
		g.Go(func() error {
			outcomes[i], stored[i] = s.simulateBuilding(ctx, b, at)
			return nil
		})
	}
	g.Wait()

	result := &TickResult{
		Timestamp: at,
		Readings:  make([]models.Reading, 0, len(buildings)),
		Buildings: outcomes,
	}
	for i, outcome := range outcomes {
		if outcome.Error != "" {
			result.Failed++
		}
		if stored[i] != nil {
			result.Readings = append(result.Readings, *stored[i])
			result.Generated++
		}
	}

	if len(result.Readings) > 0 {
		BestEffort(ctx, s.logger, s.metrics, "change_events", func(ctx context.Context) error {
			return s.changes.PublishChanges(ctx, s.changeEvents(result.Readings)...)
		})
	}

	result.Duration = timer.ObserveDuration()

	s.logger.Info(ctx, "[SIMULATION_COMPLETE] Simulation tick completed", logging.Fields{
		"stage":       "COMPLETE",
		"generated":   result.Generated,
		"failed":      result.Failed,
		"duration_ms": result.Duration.Milliseconds(),
	})

	return result, nil
}

// simulateBuilding returns the stored reading, or nil when nothing was stored
func (s *SimulationService) simulateBuilding(ctx context.Context, b models.BuildingProfile, at time.Time) (BuildingOutcome, *models.Reading) {
	outcome := BuildingOutcome{BuildingID: b.ID}
	reading := s.simulator.Simulate(b, at).WithTTL(s.cfg.Retention)

	var inserted bool
	err := s.cfg.Retry.Do(ctx, s.metrics, "insert_reading", func(ctx context.Context) error {
		var err error
		inserted, err = s.repo.Insert(ctx, reading)
		return err
	})
	if err != nil {
		s.metrics.RecordSimulationError("store")
		s.logger.Error(ctx, "[SIMULATION_STORE_ERROR] Failed to store reading", logging.Fields{
			"building_id": b.ID,
			"timestamp":   at,
		}, err)
		outcome.Error = err.Error()
		return outcome, nil
	}

	if !inserted {
		s.logger.Debug(ctx, "[SIMULATION_DUPLICATE] Reading already stored", logging.Fields{
			"building_id": b.ID,
			"timestamp":   at,
		})
		return outcome, nil
	}

	s.metrics.ReadingsGeneratedTotal.Inc()
	s.metrics.RecordReading(reading.BuildingID, string(reading.BuildingType), reading.EnergyKwh, reading.Temperature, reading.Occupancy)

	s.logger.Debug(ctx, "[SIMULATION_READING] Reading stored", logging.Fields{
		"building_id": b.ID,
		"energy_kwh":  reading.EnergyKwh,
		"temperature": reading.Temperature,
		"occupancy":   reading.Occupancy,
	})

	outcome.Count = 1
	return outcome, &reading
}

func (s *SimulationService) changeEvents(readings []models.Reading) []models.ChangeEvent {
	events := make([]models.ChangeEvent, len(readings))
	for i, r := range readings {
		events[i] = models.ChangeEvent{
			EventID:   s.newID(),
			EventName: models.ChangeInsert,
			Reading:   r,
		}
	}
	return events
}

// Seed stores hourly readings for the hours whole hours before now in one
// batch, so a fresh store has history to chart and archive. Readings that
// already exist are kept. No change events are published for seeded history.
func (s *SimulationService) Seed(ctx context.Context, hours int) (int, error) {
	if hours <= 0 {
		return 0, nil
	}

	end := s.now().UTC().Truncate(time.Hour)
	buildings := s.registry.All()
	readings := make([]models.Reading, 0, hours*len(buildings))
	for h := hours; h >= 1; h-- {
		at := end.Add(-time.Duration(h) * time.Hour)
		for _, b := range buildings {
			readings = append(readings, s.simulator.Simulate(b, at).WithTTL(s.cfg.Retention))
		}
	}

	var inserted int
	err := s.cfg.Retry.Do(ctx, s.metrics, "insert_batch", func(ctx context.Context) error {
		var err error
		inserted, err = s.repo.InsertBatch(ctx, readings)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to seed readings: %w", err)
	}

	s.metrics.ReadingsGeneratedTotal.Add(float64(inserted))
	s.logger.Info(ctx, "[SIMULATION_SEED] Seeded historical readings", logging.Fields{
		"hours":     hours,
		"generated": len(readings),
		"inserted":  inserted,
	})
	return inserted, nil
}

// Purge removes readings whose retention has lapsed
func (s *SimulationService) Purge(ctx context.Context) (int64, error) {
	var removed int64
	err := s.cfg.Retry.Do(ctx, s.metrics, "delete_expired", func(ctx context.Context) error {
		var err error
		removed, err = s.repo.DeleteExpired(ctx, s.now())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired readings: %w", err)
	}
	return removed, nil
}

// Run ticks immediately and then every interval until ctx is done
func (s *SimulationService) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunTick(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
