package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"campus-energy/internal/alerts"
	"campus-energy/internal/models"
	"campus-energy/internal/notify"
	"campus-energy/internal/repository"
	"campus-energy/pkg/logging"
	"campus-energy/pkg/metrics"
)

// Alert triggers, used as the metric label
const (
	TriggerStream    = "stream"
	TriggerScheduled = "scheduled"
)

// DefaultScanLimit is how many recent readings a scheduled check evaluates
const DefaultScanLimit = 50

// AlertConfig tunes the alert checker
type AlertConfig struct {
	DashboardLink string
	ScanLimit     int
	Retry         RetryPolicy
}

// AlertService evaluates readings against thresholds and publishes alerts
type AlertService struct {
	repo      repository.ReadingRepository
	evaluator *alerts.Evaluator
	publisher notify.Publisher
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
	cfg       AlertConfig
	now       func() time.Time
	newID     func() string
}

// AlertResult reports a check run
type AlertResult struct {
	Trigger          string        `json:"trigger"`
	RecordsProcessed int           `json:"recordsProcessed"`
	ReadingsChecked  int           `json:"readingsChecked"`
	AlertsGenerated  int           `json:"alertsGenerated"`
	PublishFailures  int           `json:"publishFailures,omitempty"`
	Duration         time.Duration `json:"duration"`
}

// NewAlertService creates a new alert service
func NewAlertService(
	repo repository.ReadingRepository,
	evaluator *alerts.Evaluator,
	publisher notify.Publisher,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
	cfg AlertConfig,
) *AlertService {
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = DefaultScanLimit
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = DefaultRetryPolicy
	}
	return &AlertService{
		repo:      repo,
		evaluator: evaluator,
		publisher: publisher,
		logger:    logger,
		metrics:   metricsCollector,
		cfg:       cfg,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// HandleChanges checks the new image of every INSERT or MODIFY event.
// Other events are counted as processed but not evaluated.
func (s *AlertService) HandleChanges(ctx context.Context, events []models.ChangeEvent) (*AlertResult, error) {
	readings := make([]models.Reading, 0, len(events))
	for _, ev := range events {
		if ev.EventName != models.ChangeInsert && ev.EventName != models.ChangeModify {
			continue
		}
		readings = append(readings, ev.Reading)
	}

	result, err := s.check(ctx, TriggerStream, readings)
	result.RecordsProcessed = len(events)
	return result, err
}

// ScanRecent checks the most recent readings across all buildings
func (s *AlertService) ScanRecent(ctx context.Context) (*AlertResult, error) {
	var readings []models.Reading
	err := s.cfg.Retry.Do(ctx, s.metrics, "recent_readings", func(ctx context.Context) error {
		var err error
		readings, err = s.repo.RecentAcrossBuildings(ctx, s.cfg.ScanLimit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load recent readings: %w", err)
	}

	s.logger.Info(ctx, "[ALERT_SCAN] Retrieved recent readings", logging.Fields{
		"count": len(readings),
	})

	result, err := s.check(ctx, TriggerScheduled, readings)
	result.RecordsProcessed = len(readings)
	return result, err
}

// check evaluates readings concurrently. A failed publish does not stop
// the other readings; the failures are returned together.
func (s *AlertService) check(ctx context.Context, trigger string, readings []models.Reading) (*AlertResult, error) {
	start := time.Now()
	raised := make([]bool, len(readings))
	errs := make([]error, len(readings))

	var g errgroup.Group
	for i, r := range readings {
		i, r := i, r
		g.Go(func() error {
			raised[i], errs[i] = s.checkReading(ctx, trigger, r)
			return nil
		})
	}
	g.Wait()

	result := &AlertResult{Trigger: trigger, ReadingsChecked: len(readings)}
	for i := range readings {
		if raised[i] {
			result.AlertsGenerated++
		}
		if errs[i] != nil {
			result.PublishFailures++
		}
	}
	result.Duration = time.Since(start)

	s.logger.Info(ctx, "[ALERT_CHECK_COMPLETE] Alert check completed", logging.Fields{
		"trigger":          trigger,
		"readings_checked": result.ReadingsChecked,
		"alerts_generated": result.AlertsGenerated,
		"publish_failures": result.PublishFailures,
		"duration_ms":      result.Duration.Milliseconds(),
	})

	if result.PublishFailures > 0 {
		return result, fmt.Errorf("%d of %d alerts failed to publish: %w",
			result.PublishFailures, result.PublishFailures+result.AlertsGenerated, errors.Join(errs...))
	}
	return result, nil
}

func (s *AlertService) checkReading(ctx context.Context, trigger string, r models.Reading) (bool, error) {
	s.metrics.RecordAlertCheck(trigger)

	event, ok := s.evaluator.Check(r)
	if !ok {
		return false, nil
	}

	payload := s.payload(r, event)
	log := s.logger.WithFields(logging.Fields{
		"building_id": r.BuildingID,
		"alert_id":    payload.AlertID,
		"trigger":     trigger,
	})

	if err := s.publisher.Publish(ctx, payload); err != nil {
		s.metrics.AlertPublishErrors.Inc()
		log.Error(ctx, "[ALERT_PUBLISH_ERROR] Failed to publish alert", logging.Fields{}, err)
		return false, fmt.Errorf("building %s: %w", r.BuildingID, err)
	}

	s.metrics.RecordAlert(r.BuildingID, string(r.BuildingType))
	log.Info(ctx, "[ALERT_SENT] Alert published", logging.Fields{
		"alerts": event.Messages(),
	})
	return true, nil
}

func (s *AlertService) payload(r models.Reading, event models.AlertEvent) models.AlertPayload {
	return models.AlertPayload{
		AlertID:   s.newID(),
		AlertType: models.AlertType,
		Timestamp: s.now().UTC(),
		Subject:   "Energy Alert: " + r.BuildingName,
		Building: models.AlertBuilding{
			ID:   r.BuildingID,
			Name: r.BuildingName,
			Type: r.BuildingType,
		},
		Reading: models.AlertReading{
			Timestamp:   r.Timestamp,
			EnergyKwh:   r.EnergyKwh,
			Temperature: r.Temperature,
			Occupancy:   r.Occupancy,
			Cost:        r.Cost,
		},
		Alerts:        event.Messages(),
		DashboardLink: s.cfg.DashboardLink,
	}
}
