package simulation

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-energy/internal/models"
	"campus-energy/internal/registry"
)

func TestOccupancy_Bands(t *testing.T) {
	tests := []struct {
		name     string
		category models.Category
		day      time.Weekday
		hour     int
		want     float64
	}{
		{"academic weekday night", models.CategoryAcademic, time.Tuesday, 6, 0.05},
		{"academic weekday 7 is morning band", models.CategoryAcademic, time.Tuesday, 7, 0.3},
		{"academic weekday 9 is class band", models.CategoryAcademic, time.Tuesday, 9, 0.85},
		{"academic weekday 15", models.CategoryAcademic, time.Tuesday, 15, 0.85},
		{"academic weekday 16", models.CategoryAcademic, time.Tuesday, 16, 0.4},
		{"academic weekday 20", models.CategoryAcademic, time.Tuesday, 20, 0.1},
		{"academic weekend 7", models.CategoryAcademic, time.Saturday, 7, 0},
		{"academic weekend 8", models.CategoryAcademic, time.Sunday, 8, 0.1},
		{"academic weekend 18", models.CategoryAcademic, time.Sunday, 18, 0},

		{"residential weekday 0", models.CategoryResidential, time.Monday, 0, 0.8},
		{"residential weekday 7", models.CategoryResidential, time.Monday, 7, 0.5},
		{"residential weekday 9", models.CategoryResidential, time.Monday, 9, 0.2},
		{"residential weekday 16", models.CategoryResidential, time.Monday, 16, 0.6},
		{"residential weekday 23", models.CategoryResidential, time.Monday, 23, 0.75},
		{"residential weekend 7", models.CategoryResidential, time.Saturday, 7, 0.7},
		{"residential weekend 8", models.CategoryResidential, time.Saturday, 8, 0.4},
		{"residential weekend 12", models.CategoryResidential, time.Saturday, 12, 0.3},
		{"residential weekend 17", models.CategoryResidential, time.Saturday, 17, 0.5},
		{"residential weekend 22", models.CategoryResidential, time.Saturday, 22, 0.6},

		{"laboratory weekday 6", models.CategoryLaboratory, time.Friday, 6, 0.1},
		{"laboratory weekday 7", models.CategoryLaboratory, time.Friday, 7, 0.4},
		{"laboratory weekday 10", models.CategoryLaboratory, time.Friday, 10, 0.7},
		{"laboratory weekday 18", models.CategoryLaboratory, time.Friday, 18, 0.3},
		{"laboratory weekday 22", models.CategoryLaboratory, time.Friday, 22, 0.1},
		{"laboratory weekend 7", models.CategoryLaboratory, time.Sunday, 7, 0.05},
		{"laboratory weekend 8", models.CategoryLaboratory, time.Sunday, 8, 0.2},
		{"laboratory weekend 18", models.CategoryLaboratory, time.Sunday, 18, 0.05},

		{"administrative weekday 6", models.CategoryAdministrative, time.Wednesday, 6, 0.05},
		{"administrative weekday 7", models.CategoryAdministrative, time.Wednesday, 7, 0.5},
		{"administrative weekday 9", models.CategoryAdministrative, time.Wednesday, 9, 0.9},
		{"administrative weekday 17", models.CategoryAdministrative, time.Wednesday, 17, 0.3},
		{"administrative weekday 19", models.CategoryAdministrative, time.Wednesday, 19, 0.05},
		{"administrative weekend 12", models.CategoryAdministrative, time.Saturday, 12, 0.1},

		{"unknown weekday", "greenhouse", time.Tuesday, 12, 0.2},
		{"unknown weekend", "greenhouse", time.Sunday, 3, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Occupancy(tt.hour, tt.day, tt.category))
		})
	}
}

func TestOccupancy_RangeAndPurity(t *testing.T) {
	categories := append(models.KnownCategories(), "unknown")
	for _, c := range categories {
		for day := time.Sunday; day <= time.Saturday; day++ {
			for hour := 0; hour < 24; hour++ {
				got := Occupancy(hour, day, c)
				assert.GreaterOrEqual(t, got, 0.0)
				assert.LessOrEqual(t, got, 1.0)
				assert.Equal(t, got, Occupancy(hour, day, c), "occupancy must be deterministic")
			}
		}
	}
}

func TestTimeFactor(t *testing.T) {
	b := models.BuildingProfile{PeakMultiplier: 3.5}
	tests := []struct {
		hour    int
		weekend bool
		want    float64
	}{
		{7, false, 1.0},
		{8, false, 3.5},
		{17, false, 3.5},
		{18, false, 1.5},
		{22, false, 1.5},
		{23, false, 1.0},
		{8, true, 1.2},
		{17, true, 1.2},
		{18, true, 1.1},
		{3, true, 1.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TimeFactor(b, tt.hour, tt.weekend), "hour=%d weekend=%v", tt.hour, tt.weekend)
	}
}

func labBuilding(t *testing.T) models.BuildingProfile {
	t.Helper()
	lab, err := registry.Default().Get("lab-01")
	require.NoError(t, err)
	return lab
}

func TestSimulate_LabWeekdayMorning(t *testing.T) {
	// Tuesday 10:00 UTC
	at := time.Date(2024, 3, 5, 10, 0, 0, 500, time.UTC)
	sim := NewSimulator(FixedSource(0.5))

	r := sim.Simulate(labBuilding(t), at)

	assert.Equal(t, "lab-01", r.BuildingID)
	assert.Equal(t, "Chemistry Research Center", r.BuildingName)
	assert.Equal(t, models.CategoryLaboratory, r.BuildingType)
	assert.Equal(t, time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), r.Timestamp)
	assert.Equal(t, 84, r.Occupancy)
	assert.InDelta(t, 72.4, r.Temperature, 1e-9)
	assert.InDelta(t, 356.36, r.EnergyKwh, 1e-9)
	assert.InDelta(t, 42.76, r.Cost, 1e-9)
}

func TestSimulate_NoiseBounds(t *testing.T) {
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	lab := labBuilding(t)
	base := Energy(lab, 0.7, 10, false)

	low := NewSimulator(FixedSource(0)).Simulate(lab, at)
	assert.InDelta(t, models.Round2(base*0.95), low.EnergyKwh, 1e-9)
	assert.InDelta(t, 68+0.7*2, low.Temperature, 1e-9)

	sim := NewSimulator(NewSeededSource(42))
	for i := 0; i < 200; i++ {
		r := sim.Simulate(lab, at)
		assert.GreaterOrEqual(t, r.EnergyKwh, models.Round2(base*0.95))
		assert.LessOrEqual(t, r.EnergyKwh, models.Round2(base*1.05))
		assert.GreaterOrEqual(t, r.Temperature, 69.4)
		assert.LessOrEqual(t, r.Temperature, 75.4)
		assert.Equal(t, models.CostFor(r.EnergyKwh), r.Cost)
	}
}

func TestSimulate_DrawOrder(t *testing.T) {
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	lab := labBuilding(t)

	// first sample feeds temperature, second feeds energy noise
	r := NewSimulator(NewSequenceSource(0, 1)).Simulate(lab, at)

	assert.InDelta(t, 69.4, r.Temperature, 1e-9)
	assert.InDelta(t, models.Round2(Energy(lab, 0.7, 10, false)*1.05), r.EnergyKwh, 1e-9)
}

func TestSimulate_SeededIsReproducible(t *testing.T) {
	at := time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC)
	catalog := registry.Default().All()

	a := NewSimulator(NewSeededSource(7))
	b := NewSimulator(NewSeededSource(7))
	for _, building := range catalog {
		assert.Equal(t, a.Simulate(building, at), b.Simulate(building, at))
	}
}

func TestSimulate_Location(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	// 15:00 UTC is 10:00 local
	at := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)
	r := NewSimulator(FixedSource(0.5), WithLocation(loc)).Simulate(labBuilding(t), at)

	assert.InDelta(t, 356.36, r.EnergyKwh, 1e-9)
	assert.Equal(t, time.UTC, r.Timestamp.Location())
}

func TestLockedSource_Concurrent(t *testing.T) {
	src := NewSeededSource(1)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				v := src.Float64()
				assert.True(t, v >= 0 && v < 1)
			}
		}()
	}
	wg.Wait()
}

func TestSequenceSource_Wraps(t *testing.T) {
	s := NewSequenceSource(0.1, 0.2)
	assert.Equal(t, []float64{0.1, 0.2, 0.1}, []float64{s.Float64(), s.Float64(), s.Float64()})
	assert.Equal(t, 0.0, NewSequenceSource().Float64())
}
