package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"campus-energy/internal/aggregation"
	"campus-energy/internal/archive"
	"campus-energy/internal/models"
	"campus-energy/internal/repository"
	"campus-energy/pkg/logging"
	"campus-energy/pkg/metrics"
)

// DateLayout is the calendar date format used in archive documents and the API
const DateLayout = "2006-01-02"

// ArchiveConfig tunes a daily archival run
type ArchiveConfig struct {
	Concurrency int
	Retry       RetryPolicy
}

// ArchiveService writes a day's readings and rollups to the blob store
type ArchiveService struct {
	repo    repository.ReadingRepository
	store   archive.Store
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	cfg     ArchiveConfig
	now     func() time.Time
}

// ArchiveResult contains the results of an archival run
type ArchiveResult struct {
	Date               string                  `json:"date"`
	BuildingsProcessed int                     `json:"buildingsProcessed"`
	TotalRecords       int                     `json:"totalRecords"`
	Failed             []string                `json:"failed,omitempty"`
	SummaryWritten     bool                    `json:"summaryWritten"`
	Results            []models.BuildingResult `json:"results"`
	Duration           time.Duration           `json:"duration"`
}

// NewArchiveService creates a new archive service
func NewArchiveService(
	repo repository.ReadingRepository,
	store archive.Store,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
	cfg ArchiveConfig,
) *ArchiveService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = DefaultRetryPolicy
	}
	return &ArchiveService{
		repo:    repo,
		store:   store,
		logger:  logger,
		metrics: metricsCollector,
		cfg:     cfg,
		now:     time.Now,
	}
}

// ArchiveYesterday archives the UTC day before now
func (s *ArchiveService) ArchiveYesterday(ctx context.Context) (*ArchiveResult, error) {
	return s.ArchiveDay(ctx, s.now().UTC().AddDate(0, 0, -1))
}

// ArchiveDay archives every building's readings for the UTC day containing
// day, then the daily summary and hourly breakdown when any building had
// data. Per-building failures are reported in the result, not returned.
func (s *ArchiveService) ArchiveDay(ctx context.Context, day time.Time) (*ArchiveResult, error) {
	timer := s.metrics.NewTimer(s.metrics.ArchiveDuration)
	start, end := archive.DayBounds(day)
	date := start.Format(DateLayout)

	s.logger.Info(ctx, "[ARCHIVE_START] Starting daily archival", logging.Fields{
		"stage": "INITIALIZATION",
		"date":  date,
	})

	var ids []string
	err := s.cfg.Retry.Do(ctx, s.metrics, "distinct_buildings", func(ctx context.Context) error {
		var err error
		ids, err = s.repo.DistinctBuildingIDs(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list buildings: %w", err)
	}

	results := make([]models.BuildingResult, len(ids))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			results[i] = s.archiveBuilding(ctx, id, start, end)
			return nil
		})
	}
	g.Wait()

	result := &ArchiveResult{
		Date:               date,
		BuildingsProcessed: len(ids),
		Results:            results,
	}
	for _, r := range results {
		result.TotalRecords += r.Count
		if r.Err != nil {
			result.Failed = append(result.Failed, r.BuildingID)
		}
	}

	if aggregation.HasData(results) {
		if err := s.writeRollups(ctx, start, date, results); err != nil {
			result.Duration = timer.ObserveDuration()
			return result, err
		}
		result.SummaryWritten = true
	} else {
		s.logger.Info(ctx, "[ARCHIVE_NO_DATA] No readings for day, skipping summary", logging.Fields{
			"date": date,
		})
	}

	result.Duration = timer.ObserveDuration()

	s.logger.Info(ctx, "[ARCHIVE_COMPLETE] Daily archival completed", logging.Fields{
		"stage":               "COMPLETE",
		"date":                date,
		"buildings_processed": result.BuildingsProcessed,
		"total_records":       result.TotalRecords,
		"failed":              len(result.Failed),
		"duration_ms":         result.Duration.Milliseconds(),
	})

	return result, nil
}

func (s *ArchiveService) archiveBuilding(ctx context.Context, buildingID string, start, end time.Time) models.BuildingResult {
	result := models.BuildingResult{BuildingID: buildingID}

	var readings []models.Reading
	err := s.cfg.Retry.Do(ctx, s.metrics, "building_readings_range", func(ctx context.Context) error {
		var err error
		readings, err = s.repo.ForBuildingBetween(ctx, buildingID, start, end)
		return err
	})
	if err != nil {
		return s.failBuilding(ctx, result, err)
	}

	if len(readings) == 0 {
		s.metrics.RecordArchiveBuilding("empty")
		s.logger.Debug(ctx, "[ARCHIVE_BUILDING_EMPTY] No readings for building", logging.Fields{
			"building_id": buildingID,
		})
		return result
	}

	doc := models.BuildingArchive{
		BuildingID: buildingID,
		Date:       start.Format(DateLayout),
		Readings:   readings,
		Metrics:    aggregation.ComputeBuildingMetrics(readings),
	}
	key := archive.BuildingKey(start, buildingID)
	err = s.cfg.Retry.Do(ctx, s.metrics, "put_building_archive", func(ctx context.Context) error {
		return archive.PutJSON(ctx, s.store, key, doc)
	})
	if err != nil {
		return s.failBuilding(ctx, result, err)
	}

	s.metrics.RecordArchiveBuilding("archived")
	s.metrics.ArchiveRecordsTotal.Add(float64(len(readings)))

	s.logger.Info(ctx, "[ARCHIVE_BUILDING] Building archived", logging.Fields{
		"building_id": buildingID,
		"records":     len(readings),
		"key":         key,
	})

	result.Count = len(readings)
	result.Metrics = doc.Metrics
	return result
}

func (s *ArchiveService) failBuilding(ctx context.Context, result models.BuildingResult, err error) models.BuildingResult {
	s.metrics.RecordArchiveBuilding("failed")
	s.logger.Error(ctx, "[ARCHIVE_BUILDING_ERROR] Failed to archive building", logging.Fields{
		"building_id": result.BuildingID,
	}, err)
	result.Err = err
	return result
}

func (s *ArchiveService) writeRollups(ctx context.Context, day time.Time, date string, results []models.BuildingResult) error {
	rollup := aggregation.Rollup(date, s.now(), results)
	if err := archive.PutJSON(ctx, s.store, archive.SummaryKey(day), rollup); err != nil {
		return fmt.Errorf("failed to write daily summary: %w", err)
	}

	hourly := aggregation.FlattenHourly(date, results)
	if err := archive.PutJSON(ctx, s.store, archive.HourlyKey(day), hourly); err != nil {
		return fmt.Errorf("failed to write hourly data: %w", err)
	}

	s.logger.Info(ctx, "[ARCHIVE_SUMMARY] Daily summary written", logging.Fields{
		"date":           date,
		"building_count": rollup.Totals.BuildingCount,
		"record_count":   rollup.Totals.RecordCount,
	})
	return nil
}
