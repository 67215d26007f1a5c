package services

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"campus-energy/internal/models"
	"campus-energy/internal/repository"
	"campus-energy/pkg/metrics"
)

var testRetry = RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond}

func newTestMetrics() *metrics.Collector {
	return metrics.NewCollector("test", prometheus.NewRegistry())
}

func transientErr() error {
	return &repository.StoreError{Op: "test", Err: fmt.Errorf("connection reset: %w", driver.ErrBadConn)}
}

func permanentErr(msg string) error {
	return &repository.StoreError{Op: "test", Err: errors.New(msg)}
}

// fakeRepo is an in-memory ReadingRepository
type fakeRepo struct {
	mu       sync.Mutex
	readings []models.Reading

	insertErr      map[string]error
	insertFailures map[string]int
	rangeErr       map[string]error
	recentErr      error
	idsErr         error
	healthErr      error
}

func newFakeRepo(readings ...models.Reading) *fakeRepo {
	return &fakeRepo{
		readings:       readings,
		insertErr:      map[string]error{},
		insertFailures: map[string]int{},
		rangeErr:       map[string]error{},
	}
}

func (f *fakeRepo) Insert(_ context.Context, r models.Reading) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertFailures[r.BuildingID] > 0 {
		f.insertFailures[r.BuildingID]--
		return false, transientErr()
	}
	if err := f.insertErr[r.BuildingID]; err != nil {
		return false, err
	}
	for _, existing := range f.readings {
		if existing.BuildingID == r.BuildingID && existing.Timestamp.Equal(r.Timestamp) {
			return false, nil
		}
	}
	f.readings = append(f.readings, r)
	return true, nil
}

func (f *fakeRepo) InsertBatch(ctx context.Context, rs []models.Reading) (int, error) {
	n := 0
	for _, r := range rs {
		ok, err := f.Insert(ctx, r)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.readings[:0]
	var removed int64
	for _, r := range f.readings {
		if r.TTL > 0 && r.TTL <= now.Unix() {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	f.readings = kept
	return removed, nil
}

func (f *fakeRepo) sorted(desc bool, keep func(models.Reading) bool) []models.Reading {
	out := []models.Reading{}
	for _, r := range f.readings {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func limit(rs []models.Reading, n int) []models.Reading {
	if len(rs) > n {
		return rs[:n]
	}
	return rs
}

func (f *fakeRepo) RecentAcrossBuildings(_ context.Context, n int) ([]models.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return limit(f.sorted(true, func(models.Reading) bool { return true }), n), nil
}

func (f *fakeRepo) RecentForBuilding(_ context.Context, id string, n int) ([]models.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return limit(f.sorted(true, func(r models.Reading) bool { return r.BuildingID == id }), n), nil
}

func (f *fakeRepo) ForBuildingBetween(_ context.Context, id string, start, end time.Time) ([]models.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.rangeErr[id]; err != nil {
		return nil, err
	}
	return f.sorted(false, func(r models.Reading) bool {
		return r.BuildingID == id && !r.Timestamp.Before(start) && !r.Timestamp.After(end)
	}), nil
}

func (f *fakeRepo) AllBetween(_ context.Context, start, end time.Time) ([]models.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(false, func(r models.Reading) bool {
		return !r.Timestamp.Before(start) && !r.Timestamp.After(end)
	}), nil
}

func (f *fakeRepo) DistinctBuildingIDs(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idsErr != nil {
		return nil, f.idsErr
	}
	seen := map[string]bool{}
	ids := []string{}
	for _, r := range f.readings {
		if !seen[r.BuildingID] {
			seen[r.BuildingID] = true
			ids = append(ids, r.BuildingID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeRepo) HealthCheck(context.Context) error {
	return f.healthErr
}

// fakePublisher records published alerts
type fakePublisher struct {
	mu   sync.Mutex
	sent []models.AlertPayload
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, alert models.AlertPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, alert)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

// fakeChanges records change events
type fakeChanges struct {
	events []models.ChangeEvent
	err    error
}

func (c *fakeChanges) PublishChanges(_ context.Context, events ...models.ChangeEvent) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, events...)
	return nil
}

func (c *fakeChanges) Close() error { return nil }

// fakeCache stores JSON in memory
type fakeCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (c *fakeCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return false, c.getErr
	}
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *fakeCache) Close() error { return nil }

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func reading(id string, category models.Category, at time.Time, energy, temperature float64) models.Reading {
	return models.Reading{
		BuildingID:   id,
		Timestamp:    at,
		BuildingName: "Building " + id,
		BuildingType: category,
		EnergyKwh:    energy,
		Temperature:  temperature,
		Occupancy:    10,
		Cost:         models.CostFor(energy),
	}
}
