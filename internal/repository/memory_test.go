package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-energy/internal/models"
)

var _ ReadingRepository = (*MemoryRepository)(nil)

func at(hour int) time.Time {
	return time.Date(2024, 3, 4, hour, 0, 0, 0, time.UTC)
}

func seeded(t *testing.T) *MemoryRepository {
	t.Helper()
	repo := NewMemoryRepository()
	n, err := repo.InsertBatch(context.Background(), []models.Reading{
		{BuildingID: "lib-01", Timestamp: at(9), EnergyKwh: 10},
		{BuildingID: "lab-01", Timestamp: at(9), EnergyKwh: 20},
		{BuildingID: "lab-01", Timestamp: at(10), EnergyKwh: 30, TTL: at(10).Add(time.Hour).Unix()},
		{BuildingID: "dorm-01", Timestamp: at(11), EnergyKwh: 40},
	})
	require.NoError(t, err)
	require.Equal(t, 4, n)
	return repo
}

func TestMemoryRepository_InsertIgnoresDuplicates(t *testing.T) {
	repo := seeded(t)
	ctx := context.Background()

	ok, err := repo.Insert(ctx, models.Reading{BuildingID: "lab-01", Timestamp: at(10), EnergyKwh: 99})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.RecentForBuilding(ctx, "lab-01", 1)
	require.NoError(t, err)
	assert.Equal(t, 30.0, got[0].EnergyKwh)
	assert.Equal(t, 4, repo.Len())
}

func TestMemoryRepository_Ordering(t *testing.T) {
	repo := seeded(t)
	ctx := context.Background()

	recent, err := repo.RecentAcrossBuildings(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"dorm-01", "lab-01", "lab-01"}, []string{recent[0].BuildingID, recent[1].BuildingID, recent[2].BuildingID})

	all, err := repo.AllBetween(ctx, at(9), at(10))
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "lab-01", all[0].BuildingID)
	assert.Equal(t, "lib-01", all[1].BuildingID)
	assert.Equal(t, at(10), all[2].Timestamp)

	ranged, err := repo.ForBuildingBetween(ctx, "lab-01", at(0), at(23))
	require.NoError(t, err)
	assert.Len(t, ranged, 2)
	assert.True(t, ranged[0].Timestamp.Before(ranged[1].Timestamp))
}

func TestMemoryRepository_DistinctAndPurge(t *testing.T) {
	repo := seeded(t)
	ctx := context.Background()

	ids, err := repo.DistinctBuildingIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dorm-01", "lab-01", "lib-01"}, ids)

	removed, err := repo.DeleteExpired(ctx, at(12))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 3, repo.Len())
	assert.NoError(t, repo.HealthCheck(ctx))
}
