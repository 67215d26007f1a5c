package repository

import (
	"context"
	"fmt"
	"time"

	"campus-energy/internal/models"
	"campus-energy/pkg/database"
	"campus-energy/pkg/logging"
	"campus-energy/pkg/metrics"
)

// ReadingRepository provides data access for building readings
type ReadingRepository interface {
	// Write operations
	Insert(ctx context.Context, reading models.Reading) (bool, error)
	InsertBatch(ctx context.Context, readings []models.Reading) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// Read operations
	RecentAcrossBuildings(ctx context.Context, limit int) ([]models.Reading, error)
	RecentForBuilding(ctx context.Context, buildingID string, limit int) ([]models.Reading, error)
	ForBuildingBetween(ctx context.Context, buildingID string, start, end time.Time) ([]models.Reading, error)
	AllBetween(ctx context.Context, start, end time.Time) ([]models.Reading, error)
	DistinctBuildingIDs(ctx context.Context) ([]string, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

const readingColumns = `building_id, ts, building_name, building_type, energy_kwh, temperature, occupancy, cost, ttl`

const insertReadingQuery = `
	INSERT INTO readings (` + readingColumns + `)
	VALUES (:building_id, :ts, :building_name, :building_type, :energy_kwh, :temperature, :occupancy, :cost, :ttl)
	ON CONFLICT (building_id, ts) DO NOTHING
`

// readingRepository implements ReadingRepository on PostgreSQL
type readingRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewReadingRepository creates a new reading repository
func NewReadingRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) ReadingRepository {
	return &readingRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Insert stores a reading. Readings are append-only, so a duplicate
// (building, timestamp) is ignored and reported as not inserted.
func (r *readingRepository) Insert(ctx context.Context, reading models.Reading) (bool, error) {
	result, err := r.db.NamedExecContext(ctx, "insert_reading", insertReadingQuery, reading)
	if err != nil {
		return false, wrap("insert reading", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, wrap("insert reading", err)
	}

	r.logger.Debug(ctx, "[REPO_INSERT_READING] Reading stored", logging.Fields{
		"building_id": reading.BuildingID,
		"timestamp":   reading.Timestamp,
		"inserted":    rows > 0,
	})

	return rows > 0, nil
}

// InsertBatch stores readings in a single transaction and returns how many were new
func (r *readingRepository) InsertBatch(ctx context.Context, readings []models.Reading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	start := time.Now()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return 0, wrap("begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, insertReadingQuery)
	if err != nil {
		return 0, wrap("prepare insert", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, reading := range readings {
		result, err := stmt.ExecContext(ctx, reading)
		if err != nil {
			return 0, wrap("insert reading", err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, wrap("commit transaction", err)
	}

	r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Batch insert completed", logging.Fields{
		"count":       len(readings),
		"inserted":    inserted,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return inserted, nil
}

// DeleteExpired removes readings whose TTL has passed
func (r *readingRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "delete_expired", `DELETE FROM readings WHERE ttl > 0 AND ttl <= $1`, now.Unix())
	if err != nil {
		return 0, wrap("delete expired", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, wrap("delete expired", err)
	}

	r.logger.Info(ctx, "[REPO_PURGE] Expired readings removed", logging.Fields{
		"rows": rows,
	})

	return rows, nil
}

// RecentAcrossBuildings returns the newest readings of any building, newest first
func (r *readingRepository) RecentAcrossBuildings(ctx context.Context, limit int) ([]models.Reading, error) {
	query := `SELECT ` + readingColumns + `
		FROM readings
		ORDER BY ts DESC, building_id
		LIMIT $1`

	readings := []models.Reading{}
	if err := r.db.SelectContext(ctx, "recent_readings", &readings, query, limit); err != nil {
		return nil, wrap("select recent readings", err)
	}
	return normalize(readings), nil
}

// RecentForBuilding returns a building's newest readings, newest first
func (r *readingRepository) RecentForBuilding(ctx context.Context, buildingID string, limit int) ([]models.Reading, error) {
	query := `SELECT ` + readingColumns + `
		FROM readings
		WHERE building_id = $1
		ORDER BY ts DESC
		LIMIT $2`

	readings := []models.Reading{}
	if err := r.db.SelectContext(ctx, "recent_building_readings", &readings, query, buildingID, limit); err != nil {
		return nil, wrap("select building readings", err)
	}
	return normalize(readings), nil
}

// ForBuildingBetween returns a building's readings with start <= ts <= end, oldest first
func (r *readingRepository) ForBuildingBetween(ctx context.Context, buildingID string, start, end time.Time) ([]models.Reading, error) {
	query := `SELECT ` + readingColumns + `
		FROM readings
		WHERE building_id = $1 AND ts BETWEEN $2 AND $3
		ORDER BY ts`

	readings := []models.Reading{}
	if err := r.db.SelectContext(ctx, "building_readings_range", &readings, query, buildingID, start, end); err != nil {
		return nil, wrap("select building range", err)
	}
	return normalize(readings), nil
}

// AllBetween returns every reading with start <= ts <= end, oldest first
func (r *readingRepository) AllBetween(ctx context.Context, start, end time.Time) ([]models.Reading, error) {
	query := `SELECT ` + readingColumns + `
		FROM readings
		WHERE ts BETWEEN $1 AND $2
		ORDER BY ts, building_id`

	readings := []models.Reading{}
	if err := r.db.SelectContext(ctx, "readings_range", &readings, query, start, end); err != nil {
		return nil, wrap("select range", err)
	}
	return normalize(readings), nil
}

// DistinctBuildingIDs lists every building that has stored readings
func (r *readingRepository) DistinctBuildingIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	if err := r.db.SelectContext(ctx, "distinct_buildings", &ids, `SELECT DISTINCT building_id FROM readings ORDER BY building_id`); err != nil {
		return nil, wrap("select building ids", err)
	}
	return ids, nil
}

// HealthCheck performs a repository health check
func (r *readingRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// normalize returns timestamps in UTC; the driver yields them in the session zone
func normalize(readings []models.Reading) []models.Reading {
	for i := range readings {
		readings[i].Timestamp = readings[i].Timestamp.UTC()
	}
	return readings
}

func wrap(op string, err error) error {
	return &StoreError{Op: op, Err: fmt.Errorf("failed to %s: %w", op, err)}
}
