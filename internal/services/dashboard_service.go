package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"campus-energy/internal/aggregation"
	"campus-energy/internal/archive"
	"campus-energy/internal/cache"
	"campus-energy/internal/models"
	"campus-energy/internal/registry"
	"campus-energy/internal/repository"
	"campus-energy/pkg/logging"
	"campus-energy/pkg/metrics"
)

// DefaultCurrentLimit is how many recent rows back the current readings view
const DefaultCurrentLimit = 20

// DashboardConfig tunes the dashboard queries and response caching
type DashboardConfig struct {
	CurrentLimit int
	Window       int
	// CacheTTL applies to live views; archived days are cached for ArchiveCacheTTL
	CacheTTL        time.Duration
	ArchiveCacheTTL time.Duration
}

// DashboardService serves the aggregated views behind the dashboard API
type DashboardService struct {
	repo     repository.ReadingRepository
	store    archive.Store
	registry *registry.Registry
	backfill aggregation.Backfill
	cache    cache.Cache
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
	cfg      DashboardConfig
	now      func() time.Time
}

// NewDashboardService creates a new dashboard service. A nil cache disables caching.
func NewDashboardService(
	repo repository.ReadingRepository,
	store archive.Store,
	reg *registry.Registry,
	backfill aggregation.Backfill,
	responseCache cache.Cache,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
	cfg DashboardConfig,
) *DashboardService {
	if responseCache == nil {
		responseCache = cache.Nop{}
	}
	if cfg.CurrentLimit <= 0 {
		cfg.CurrentLimit = DefaultCurrentLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = aggregation.DefaultWindow
	}
	return &DashboardService{
		repo:     repo,
		store:    store,
		registry: reg,
		backfill: backfill,
		cache:    responseCache,
		logger:   logger,
		metrics:  metricsCollector,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Buildings returns the building catalog
func (s *DashboardService) Buildings() []models.BuildingProfile {
	return s.registry.All()
}

// Current returns the latest reading of each building seen among the most
// recent rows, with campus totals.
func (s *DashboardService) Current(ctx context.Context) (*models.CurrentReadings, error) {
	key := cache.Key("current")
	var cached models.CurrentReadings
	if s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	readings, err := s.repo.RecentAcrossBuildings(ctx, s.cfg.CurrentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load current readings: %w", err)
	}

	latest := aggregation.LatestPerBuilding(readings)
	result := &models.CurrentReadings{
		Timestamp: s.now().UTC(),
		Readings:  latest,
		Summary:   aggregation.Current(latest),
	}

	s.remember(ctx, key, result, s.cfg.CacheTTL)
	return result, nil
}

// Building summarizes one building's most recent readings. It returns a
// NotFoundError when the building has none.
func (s *DashboardService) Building(ctx context.Context, buildingID string) (*models.BuildingWindowSummary, error) {
	buildingID = strings.TrimSpace(buildingID)
	if buildingID == "" {
		return nil, &models.ValidationError{Field: "buildingId", Message: "buildingId is required"}
	}
	if err := checkBuildingID(buildingID); err != nil {
		return nil, err
	}

	key := cache.Key("building", buildingID)
	var cached models.BuildingWindowSummary
	if s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	readings, err := s.repo.RecentForBuilding(ctx, buildingID, s.cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("failed to load readings for %s: %w", buildingID, err)
	}

	summary, ok := aggregation.SummarizeWindow(buildingID, readings, s.cfg.Window)
	if !ok {
		return nil, &models.NotFoundError{Resource: "building data", ID: buildingID}
	}
	summary.Timestamp = s.now().UTC()

	s.remember(ctx, key, summary, s.cfg.CacheTTL)
	return &summary, nil
}

// Historical returns the readings of one day, optionally for one building.
// Archived days are read from the blob store; otherwise the reading store
// is queried directly.
func (s *DashboardService) Historical(ctx context.Context, date, buildingID string) (*models.HistoricalData, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil, &models.ValidationError{Field: "date", Message: "date is required (YYYY-MM-DD)"}
	}
	day, err := archive.ParseDate(date)
	if err != nil {
		return nil, err
	}
	buildingID = strings.TrimSpace(buildingID)
	if err := checkBuildingID(buildingID); err != nil {
		return nil, err
	}

	key := cache.Key("historical", date, buildingID)
	var cached models.HistoricalData
	if s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	result := &models.HistoricalData{Date: date, BuildingID: buildingID}

	readings, found, err := s.archivedReadings(ctx, day, buildingID)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive for %s: %w", date, err)
	}
	if found {
		result.Source = models.SourceArchive
		result.Readings = readings
		s.remember(ctx, key, result, s.cfg.ArchiveCacheTTL)
		return result, nil
	}

	start, end := archive.DayBounds(day)
	if buildingID != "" {
		readings, err = s.repo.ForBuildingBetween(ctx, buildingID, start, end)
	} else {
		readings, err = s.repo.AllBetween(ctx, start, end)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load readings for %s: %w", date, err)
	}

	result.Source = models.SourceStore
	result.Readings = readings
	return result, nil
}

// checkBuildingID rejects ids that could address archive documents other
// than a building's own
func checkBuildingID(buildingID string) error {
	if strings.ContainsAny(buildingID, `/\`) || strings.Contains(buildingID, "..") {
		return &models.ValidationError{
			Field:   "buildingId",
			Value:   buildingID,
			Message: "buildingId must not contain path separators or '..'",
		}
	}
	return nil
}

func (s *DashboardService) archivedReadings(ctx context.Context, day time.Time, buildingID string) ([]models.Reading, bool, error) {
	var keys []string
	if buildingID != "" {
		keys = []string{archive.BuildingKey(day, buildingID)}
	} else {
		var err error
		if keys, err = s.store.List(ctx, archive.BuildingsPrefix(day)); err != nil {
			return nil, false, err
		}
	}

	readings := []models.Reading{}
	found := false
	for _, key := range keys {
		var doc models.BuildingArchive
		if err := archive.GetJSON(ctx, s.store, key, &doc); err != nil {
			if models.IsNotFound(err) {
				continue
			}
			return nil, false, err
		}
		found = true
		readings = append(readings, doc.Readings...)
	}

	sort.SliceStable(readings, func(i, j int) bool {
		if readings[i].Timestamp.Equal(readings[j].Timestamp) {
			return readings[i].BuildingID < readings[j].BuildingID
		}
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})
	return readings, found, nil
}

// ParsePeriod validates a summary period; empty means day
func ParsePeriod(period string) (models.Period, error) {
	switch p := models.Period(strings.ToLower(strings.TrimSpace(period))); p {
	case "":
		return models.PeriodDay, nil
	case models.PeriodDay, models.PeriodWeek, models.PeriodMonth:
		return p, nil
	default:
		return "", &models.ValidationError{
			Field:   "period",
			Value:   period,
			Message: "Invalid period. Use day, week, or month.",
		}
	}
}

// Summary returns the bucketed summary for period together with the
// current campus totals. Bucket values are reconstructed, so summaries
// are never cached.
func (s *DashboardService) Summary(ctx context.Context, period string) (*models.SummaryResponse, error) {
	p, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}

	current, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	response := &models.SummaryResponse{
		Timestamp: now,
		Period:    p,
		Current:   current.Summary,
	}

	switch p {
	case models.PeriodWeek:
		response.Summary = s.backfill.Weekly(now)
	case models.PeriodMonth:
		response.Summary = s.backfill.Monthly(now)
	default:
		response.Summary = s.backfill.Daily(now, current.Readings)
	}
	return response, nil
}

// HealthCheck reports whether the reading store is reachable
func (s *DashboardService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

func (s *DashboardService) lookup(ctx context.Context, key string, dest interface{}) bool {
	var hit bool
	BestEffort(ctx, s.logger, s.metrics, "cache_get", func(ctx context.Context) error {
		var err error
		hit, err = s.cache.Get(ctx, key, dest)
		return err
	})
	if hit {
		s.metrics.RecordCache("hit")
	} else {
		s.metrics.RecordCache("miss")
	}
	return hit
}

func (s *DashboardService) remember(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	BestEffort(ctx, s.logger, s.metrics, "cache_set", func(ctx context.Context) error {
		return s.cache.Set(ctx, key, value, ttl)
	})
}
