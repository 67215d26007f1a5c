package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"campus-energy/internal/models"
)

type readingKey struct {
	buildingID string
	unixNano   int64
}

// MemoryRepository implements ReadingRepository in memory with the same
// ordering and duplicate semantics as the PostgreSQL store
type MemoryRepository struct {
	mu       sync.RWMutex
	readings map[readingKey]models.Reading
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{readings: make(map[readingKey]models.Reading)}
}

func keyOf(r models.Reading) readingKey {
	return readingKey{buildingID: r.BuildingID, unixNano: r.Timestamp.UnixNano()}
}

func (m *MemoryRepository) Insert(_ context.Context, reading models.Reading) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := keyOf(reading)
	if _, exists := m.readings[k]; exists {
		return false, nil
	}
	reading.Timestamp = reading.Timestamp.UTC()
	m.readings[k] = reading
	return true, nil
}

func (m *MemoryRepository) InsertBatch(ctx context.Context, readings []models.Reading) (int, error) {
	inserted := 0
	for _, r := range readings {
		ok, err := m.Insert(ctx, r)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

func (m *MemoryRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for k, r := range m.readings {
		if r.TTL > 0 && r.TTL <= now.Unix() {
			delete(m.readings, k)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryRepository) RecentAcrossBuildings(_ context.Context, limit int) ([]models.Reading, error) {
	out := m.filter(func(models.Reading) bool { return true })
	sortNewestFirst(out)
	return head(out, limit), nil
}

func (m *MemoryRepository) RecentForBuilding(_ context.Context, buildingID string, limit int) ([]models.Reading, error) {
	out := m.filter(func(r models.Reading) bool { return r.BuildingID == buildingID })
	sortNewestFirst(out)
	return head(out, limit), nil
}

func (m *MemoryRepository) ForBuildingBetween(_ context.Context, buildingID string, start, end time.Time) ([]models.Reading, error) {
	out := m.filter(func(r models.Reading) bool {
		return r.BuildingID == buildingID && within(r.Timestamp, start, end)
	})
	sortOldestFirst(out)
	return out, nil
}

func (m *MemoryRepository) AllBetween(_ context.Context, start, end time.Time) ([]models.Reading, error) {
	out := m.filter(func(r models.Reading) bool { return within(r.Timestamp, start, end) })
	sortOldestFirst(out)
	return out, nil
}

func (m *MemoryRepository) DistinctBuildingIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	ids := []string{}
	for k := range m.readings {
		if _, ok := seen[k.buildingID]; !ok {
			seen[k.buildingID] = struct{}{}
			ids = append(ids, k.buildingID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryRepository) HealthCheck(context.Context) error {
	return nil
}

// Len returns the number of stored readings
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.readings)
}

func (m *MemoryRepository) filter(keep func(models.Reading) bool) []models.Reading {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.Reading{}
	for _, r := range m.readings {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func within(ts, start, end time.Time) bool {
	return !ts.Before(start) && !ts.After(end)
}

func sortNewestFirst(readings []models.Reading) {
	sort.Slice(readings, func(i, j int) bool {
		if !readings[i].Timestamp.Equal(readings[j].Timestamp) {
			return readings[i].Timestamp.After(readings[j].Timestamp)
		}
		return readings[i].BuildingID < readings[j].BuildingID
	})
}

func sortOldestFirst(readings []models.Reading) {
	sort.Slice(readings, func(i, j int) bool {
		if !readings[i].Timestamp.Equal(readings[j].Timestamp) {
			return readings[i].Timestamp.Before(readings[j].Timestamp)
		}
		return readings[i].BuildingID < readings[j].BuildingID
	})
}

func head(readings []models.Reading, limit int) []models.Reading {
	if limit >= 0 && len(readings) > limit {
		return readings[:limit]
	}
	return readings
}
