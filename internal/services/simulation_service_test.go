package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-energy/internal/models"
	"campus-energy/internal/registry"
	"campus-energy/internal/simulation"
	"campus-energy/pkg/logging"
	"campus-energy/pkg/metrics"
)

// Tuesday 10:00 UTC
var tickTime = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

func newTestSimulation(repo *fakeRepo, changes *fakeChanges, m *metrics.Collector) *SimulationService {
	svc := NewSimulationService(
		repo,
		registry.Default(),
		simulation.NewSimulator(simulation.FixedSource(0.5)),
		changes,
		logging.NewNopLogger(),
		m,
		SimulationConfig{
			Retention: 30 * 24 * time.Hour,
			Retry:     testRetry,
			Clock:     func() time.Time { return tickTime },
		},
	)
	svc.newID = sequentialIDs("evt")
	return svc
}

func outcomeFor(t *testing.T, result *TickResult, id string) BuildingOutcome {
	t.Helper()
	for _, o := range result.Buildings {
		if o.BuildingID == id {
			return o
		}
	}
	t.Fatalf("no outcome for %s", id)
	return BuildingOutcome{}
}

func TestSimulationService_RunTick(t *testing.T) {
	repo := newFakeRepo()
	changes := &fakeChanges{}
	m := newTestMetrics()
	svc := newTestSimulation(repo, changes, m)

	result, err := svc.RunTick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, result.Generated)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, repo.readings, 5)
	assert.Equal(t, float64(5), testutil.ToFloat64(m.ReadingsGeneratedTotal))

	var lab models.Reading
	for _, r := range result.Readings {
		if r.BuildingID == "lab-01" {
			lab = r
		}
	}
	assert.Equal(t, 356.36, lab.EnergyKwh)
	assert.Equal(t, 72.4, lab.Temperature)
	assert.Equal(t, 84, lab.Occupancy)
	assert.Equal(t, 42.76, lab.Cost)
	assert.Equal(t, tickTime.Add(30*24*time.Hour).Unix(), lab.TTL)
	assert.Equal(t, 356.36, testutil.ToFloat64(m.BuildingEnergyKwh.WithLabelValues("lab-01", "laboratory")))

	require.Len(t, changes.events, 5)
	for _, ev := range changes.events {
		assert.Equal(t, models.ChangeInsert, ev.EventName)
		assert.NotEmpty(t, ev.EventID)
	}
}

func TestSimulationService_RunTick_BuildingFailures(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(*fakeRepo)
		wantGenerated int
		wantFailed    int
		wantRetries   float64
	}{
		{
			name:          "permanent failure reports count 0",
			setup:         func(r *fakeRepo) { r.insertErr["lab-01"] = permanentErr("check constraint violated") },
			wantGenerated: 4,
			wantFailed:    1,
		},
		{
			name:          "transient failure is retried",
			setup:         func(r *fakeRepo) { r.insertFailures["admin-01"] = 2 },
			wantGenerated: 5,
			wantRetries:   2,
		},
		{
			name:          "retries are exhausted",
			setup:         func(r *fakeRepo) { r.insertFailures["admin-01"] = 5 },
			wantGenerated: 4,
			wantFailed:    1,
			wantRetries:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			tt.setup(repo)
			changes := &fakeChanges{}
			m := newTestMetrics()

			result, err := newTestSimulation(repo, changes, m).RunTick(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.wantGenerated, result.Generated)
			assert.Equal(t, tt.wantFailed, result.Failed)
			assert.Len(t, changes.events, tt.wantGenerated)
			assert.Equal(t, tt.wantRetries, testutil.ToFloat64(m.StoreRetriesTotal.WithLabelValues("insert_reading")))
			assert.Equal(t, float64(tt.wantFailed), testutil.ToFloat64(m.SimulationErrorsTotal.WithLabelValues("store")))
		})
	}
}

func TestSimulationService_RunTick_FailedBuildingHasZeroCount(t *testing.T) {
	repo := newFakeRepo()
	repo.insertErr["lab-01"] = permanentErr("disk full")

	result, err := newTestSimulation(repo, &fakeChanges{}, newTestMetrics()).RunTick(context.Background())
	require.NoError(t, err)

	lab := outcomeFor(t, result, "lab-01")
	assert.Equal(t, 0, lab.Count)
	assert.Contains(t, lab.Error, "disk full")
	assert.Equal(t, 1, outcomeFor(t, result, "academic-01").Count)
}

func TestSimulationService_RunTick_ChangePublishIsBestEffort(t *testing.T) {
	repo := newFakeRepo()
	m := newTestMetrics()
	svc := newTestSimulation(repo, &fakeChanges{err: errors.New("broker unavailable")}, m)

	result, err := svc.RunTick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, result.Generated)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SideEffectFailuresTotal.WithLabelValues("change_events")))
}

func TestSimulationService_RunTick_DuplicateTick(t *testing.T) {
	repo := newFakeRepo()
	changes := &fakeChanges{}
	svc := newTestSimulation(repo, changes, newTestMetrics())

	_, err := svc.RunTick(context.Background())
	require.NoError(t, err)

	result, err := svc.RunTick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.Generated)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, repo.readings, 5)
	assert.Len(t, changes.events, 5)
}

func TestSimulationService_RunTick_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestSimulation(newFakeRepo(), &fakeChanges{}, newTestMetrics()).RunTick(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulationService_Purge(t *testing.T) {
	expired := reading("a", models.CategoryAcademic, tickTime.Add(-40*24*time.Hour), 10, 70).WithTTL(30 * 24 * time.Hour)
	fresh := reading("a", models.CategoryAcademic, tickTime.Add(-time.Hour), 10, 70).WithTTL(30 * 24 * time.Hour)
	repo := newFakeRepo(expired, fresh)

	removed, err := newTestSimulation(repo, &fakeChanges{}, newTestMetrics()).Purge(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), removed)
	require.Len(t, repo.readings, 1)
	assert.Equal(t, fresh.Timestamp, repo.readings[0].Timestamp)
}

func TestSimulationService_Seed(t *testing.T) {
	existing := reading("lab-01", models.CategoryLaboratory, tickTime.Add(-time.Hour), 10, 70)
	repo := newFakeRepo(existing)
	changes := &fakeChanges{}
	m := newTestMetrics()

	inserted, err := newTestSimulation(repo, changes, m).Seed(context.Background(), 3)
	require.NoError(t, err)

	// 3 hours x 5 buildings, one of which already exists
	assert.Equal(t, 14, inserted)
	assert.Len(t, repo.readings, 15)
	assert.Equal(t, float64(14), testutil.ToFloat64(m.ReadingsGeneratedTotal))
	assert.Empty(t, changes.events)

	for _, r := range repo.readings {
		assert.True(t, r.Timestamp.Before(tickTime), "seeded reading at %s is not before the tick", r.Timestamp)
		assert.Zero(t, r.Timestamp.Minute())
	}

	inserted, err = newTestSimulation(repo, changes, m).Seed(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestRetryPolicy_Do(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{name: "success", errs: []error{nil}, wantCalls: 1},
		{name: "transient then success", errs: []error{transientErr(), nil}, wantCalls: 2},
		{name: "permanent is not retried", errs: []error{permanentErr("bad")}, wantCalls: 1, wantErr: true},
		{name: "attempts exhausted", errs: []error{transientErr(), transientErr(), transientErr(), nil}, wantCalls: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := testRetry.Do(context.Background(), newTestMetrics(), "op", func(context.Context) error {
				err := tt.errs[calls]
				calls++
				return err
			})
			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestRetryPolicy_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{Attempts: 5, BaseDelay: time.Hour}

	calls := 0
	err := policy.Do(ctx, newTestMetrics(), "op", func(context.Context) error {
		calls++
		cancel()
		return transientErr()
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
