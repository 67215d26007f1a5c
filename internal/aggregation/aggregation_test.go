package aggregation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-energy/internal/models"
	"campus-energy/internal/simulation"
)

var t0 = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

func reading(id string, offset time.Duration, energy float64) models.Reading {
	return models.Reading{
		BuildingID:   id,
		BuildingName: id + " hall",
		BuildingType: models.CategoryAcademic,
		Timestamp:    t0.Add(offset),
		EnergyKwh:    energy,
		Cost:         models.CostFor(energy),
	}
}

func TestLatestPerBuilding(t *testing.T) {
	tests := []struct {
		name       string
		input      []models.Reading
		wantEnergy map[string]float64
		wantOrder  []string
	}{
		{
			name:       "empty",
			input:      nil,
			wantEnergy: map[string]float64{},
			wantOrder:  []string{},
		},
		{
			name: "newest wins regardless of order",
			input: []models.Reading{
				reading("a", 0, 1),
				reading("b", time.Minute, 2),
				reading("a", 5*time.Minute, 3),
				reading("b", -time.Minute, 4),
			},
			wantEnergy: map[string]float64{"a": 3, "b": 2},
			wantOrder:  []string{"a", "b"},
		},
		{
			name: "ties keep first occurrence",
			input: []models.Reading{
				reading("a", 0, 1),
				reading("a", 0, 2),
			},
			wantEnergy: map[string]float64{"a": 1},
			wantOrder:  []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LatestPerBuilding(tt.input)
			order := make([]string, 0, len(got))
			for _, r := range got {
				order = append(order, r.BuildingID)
				assert.Equal(t, tt.wantEnergy[r.BuildingID], r.EnergyKwh)
			}
			assert.Equal(t, tt.wantOrder, order)

			// every output timestamp is the maximum for its building
			for _, r := range got {
				for _, in := range tt.input {
					if in.BuildingID == r.BuildingID {
						assert.False(t, in.Timestamp.After(r.Timestamp))
					}
				}
			}
		})
	}
}

func TestCurrent(t *testing.T) {
	latest := []models.Reading{reading("a", 0, 100.111), reading("b", 0, 50.226)}

	got := Current(latest)

	assert.Equal(t, 2, got.BuildingCount)
	assert.InDelta(t, 150.34, got.TotalEnergyKwh, 1e-9)
	assert.InDelta(t, models.Round2(latest[0].Cost+latest[1].Cost), got.TotalCost, 1e-9)
	assert.Equal(t, models.CurrentSummary{}, Current(nil))
}

func TestSummarizeWindow(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, ok := SummarizeWindow("a", nil, 12)
		assert.False(t, ok)
	})

	t.Run("averages over newest window", func(t *testing.T) {
		var readings []models.Reading
		for i := 0; i < 15; i++ {
			r := reading("a", time.Duration(i)*time.Minute, float64(i))
			r.Temperature = 60 + float64(i)
			r.Occupancy = i
			readings = append(readings, r)
		}

		got, ok := SummarizeWindow("a", readings, 12)
		require.True(t, ok)

		require.Len(t, got.Readings, 12)
		assert.Equal(t, 14.0, got.Latest.EnergyKwh)
		assert.Equal(t, "a hall", got.BuildingName)
		// readings 3..14
		assert.InDelta(t, 8.5, got.HourlyAverage.EnergyKwh, 1e-9)
		assert.Equal(t, 9, got.HourlyAverage.Occupancy)
		assert.InDelta(t, 68.5, got.HourlyAverage.Temperature, 1e-9)
		assert.True(t, got.Readings[0].Timestamp.After(got.Readings[11].Timestamp))
	})

	t.Run("non-positive window falls back to default", func(t *testing.T) {
		var readings []models.Reading
		for i := 0; i < 20; i++ {
			readings = append(readings, reading("a", time.Duration(i)*time.Minute, 1))
		}
		got, ok := SummarizeWindow("a", readings, 0)
		require.True(t, ok)
		assert.Len(t, got.Readings, DefaultWindow)
	})
}

func TestComputeBuildingMetrics(t *testing.T) {
	assert.Nil(t, ComputeBuildingMetrics(nil))

	readings := []models.Reading{
		{BuildingName: "Howe Hall", BuildingType: models.CategoryResidential, EnergyKwh: 10, Cost: 1.2, Temperature: 70, Occupancy: 100},
		{BuildingName: "ignored", BuildingType: models.CategoryAcademic, EnergyKwh: 30, Cost: 3.6, Temperature: 71, Occupancy: 201},
	}

	m := ComputeBuildingMetrics(readings)
	require.NotNil(t, m)

	assert.Equal(t, "Howe Hall", m.BuildingName)
	assert.Equal(t, models.CategoryResidential, m.BuildingType)
	assert.Equal(t, 2, m.ReadingCount)
	assert.InDelta(t, 40, m.TotalEnergyKwh, 1e-9)
	assert.InDelta(t, 4.8, m.TotalCost, 1e-9)
	assert.InDelta(t, 20, m.AvgEnergyKwh, 1e-9)
	assert.InDelta(t, 10, m.MinEnergyKwh, 1e-9)
	assert.InDelta(t, 30, m.MaxEnergyKwh, 1e-9)
	assert.InDelta(t, 70.5, m.AverageTemperature, 1e-9)
	assert.Equal(t, 151, m.AverageOccupancy)
	assert.Equal(t, 100, m.MinOccupancy)
	assert.Equal(t, 201, m.MaxOccupancy)
}

func TestAverageMetric(t *testing.T) {
	temp, err := MetricByName("averageTemperature")
	require.NoError(t, err)

	tests := []struct {
		name    string
		results []models.BuildingResult
		want    float64
	}{
		{name: "empty input", results: nil, want: 0},
		{name: "all missing", results: []models.BuildingResult{{BuildingID: "a"}}, want: 0},
		{
			name: "skips missing",
			results: []models.BuildingResult{
				{BuildingID: "a", Metrics: &models.BuildingMetrics{AverageTemperature: 70}},
				{BuildingID: "b"},
				{BuildingID: "c", Metrics: &models.BuildingMetrics{AverageTemperature: 72}},
			},
			want: 71,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AverageMetric(tt.results, temp), 1e-9)
		})
	}

	_, err = MetricByName("bogus")
	assert.True(t, models.IsValidation(err))
}

func TestRollup(t *testing.T) {
	results := []models.BuildingResult{
		{BuildingID: "a", Count: 10, Metrics: &models.BuildingMetrics{TotalEnergyKwh: 100.25, TotalCost: 12, AverageTemperature: 70, AverageOccupancy: 10}},
		{BuildingID: "b", Count: 0},
		{BuildingID: "c", Count: 5, Metrics: &models.BuildingMetrics{TotalEnergyKwh: 50, TotalCost: 6, AverageTemperature: 71.5, AverageOccupancy: 21}},
	}

	assert.True(t, HasData(results))
	assert.False(t, HasData([]models.BuildingResult{{BuildingID: "b"}}))

	r := Rollup("2024-03-04", t0.Add(123*time.Millisecond), results)

	assert.Equal(t, "2024-03-04", r.Date)
	assert.Equal(t, t0, r.Generated)
	require.Len(t, r.Buildings, 2)
	assert.Equal(t, "a", r.Buildings[0].BuildingID)
	assert.Equal(t, "c", r.Buildings[1].BuildingID)
	assert.Equal(t, 2, r.Totals.BuildingCount)
	assert.Equal(t, 15, r.Totals.RecordCount)
	assert.InDelta(t, 150.25, r.Totals.TotalEnergyKwh, 1e-9)
	assert.InDelta(t, 18, r.Totals.TotalCost, 1e-9)
	assert.InDelta(t, 70.8, r.Totals.AverageTemperature, 1e-9)
	assert.Equal(t, 16, r.Totals.AverageOccupancy)
}

func TestFlattenHourly(t *testing.T) {
	results := []models.BuildingResult{
		{BuildingID: "a", Count: 1, Metrics: &models.BuildingMetrics{AvgEnergyKwh: 100}},
		{BuildingID: "b", Count: 0},
		{BuildingID: "c", Count: 2, Metrics: &models.BuildingMetrics{AvgEnergyKwh: 50}},
	}

	got := FlattenHourly("2024-03-04", results)

	require.Len(t, got.HourlyData, 24)
	assert.Equal(t, models.SourceReconstructed, got.Source)

	want := map[int]float64{0: 90, 7: 90, 8: 180, 11: 180, 12: 225, 16: 225, 17: 135, 21: 135, 22: 75, 23: 75}
	for hour, energy := range want {
		b := got.HourlyData[hour]
		assert.Equal(t, HourLabel(hour), b.Hour)
		assert.InDelta(t, energy, b.EnergyKwh, 1e-9, "hour %d", hour)
		assert.InDelta(t, models.CostFor(energy), b.Cost, 1e-9, "hour %d", hour)
	}
	assert.Equal(t, "00:00", got.HourlyData[0].Hour)
	assert.Equal(t, "23:00", got.HourlyData[23].Hour)
}

func TestProjectMonth(t *testing.T) {
	got := ProjectMonth(1000, 10, 30)
	assert.InDelta(t, 3000, got.EnergyKwh, 1e-9)
	assert.InDelta(t, 360, got.Cost, 1e-9)

	assert.Equal(t, models.Totals{}, ProjectMonth(1000, 0, 30))
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 29, DaysIn(2024, time.February))
	assert.Equal(t, 28, DaysIn(2023, time.February))
	assert.Equal(t, 31, DaysIn(2024, time.December))
	assert.Equal(t, 30, DaysIn(2024, time.April))
}

func TestProfileBackfill_Daily(t *testing.T) {
	now := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
	latest := []models.Reading{
		{BuildingID: "a", BuildingType: models.CategoryAcademic, EnergyKwh: 100},
		{BuildingID: "r", BuildingType: models.CategoryResidential, EnergyKwh: 100},
		{BuildingID: "l", BuildingType: models.CategoryLaboratory, EnergyKwh: 100},
	}

	// noise sample 0.5 gives a factor of exactly 1.0
	got := NewProfileBackfill(simulation.FixedSource(0.5)).Daily(now, latest)

	assert.Equal(t, "2024-03-05", got.Date)
	assert.Equal(t, models.SourceReconstructed, got.Source)
	require.Len(t, got.HourlyData, 10, "hours 0 through 9")

	// hour 0: 0.6 * (0.5 + 1.4 + 1.0) * 100
	assert.InDelta(t, 174, got.HourlyData[0].EnergyKwh, 1e-6)
	// hour 8: 1.2 * (1.3 + 1.4 + 1.0) * 100
	assert.InDelta(t, 444, got.HourlyData[8].EnergyKwh, 1e-6)
	// hour 9: 1.2 * (1.3 + 0.7 + 1.0) * 100
	assert.InDelta(t, 360, got.HourlyData[9].EnergyKwh, 1e-6)

	var energy, cost float64
	for _, b := range got.HourlyData {
		energy += b.EnergyKwh
		cost += b.Cost
	}
	assert.InDelta(t, models.Round2(energy), got.Totals.EnergyKwh, 1e-9)
	assert.InDelta(t, models.Round2(cost), got.Totals.Cost, 1e-9)
}

func TestProfileBackfill_Weekly(t *testing.T) {
	// Tuesday
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	got := NewProfileBackfill(simulation.FixedSource(0.5)).Weekly(now)

	require.Len(t, got.DailyData, 7)
	assert.Equal(t, "2024-02-28", got.StartDate)
	assert.Equal(t, "2024-03-05", got.EndDate)
	assert.Equal(t, models.SourceReconstructed, got.Source)

	wantDays := []string{"Wed", "Thu", "Fri", "Sat", "Sun", "Mon", "Tue"}
	for i, b := range got.DailyData {
		assert.Equal(t, wantDays[i], b.Day)
		if b.Day == "Sat" || b.Day == "Sun" {
			assert.InDelta(t, 1200, b.EnergyKwh, 1e-6)
		} else {
			assert.InDelta(t, 2200, b.EnergyKwh, 1e-6)
		}
	}
	assert.InDelta(t, 5*2200+2*1200, got.Totals.EnergyKwh, 1e-6)
	assert.InDelta(t, (5*2200+2*1200)*0.12, got.Totals.Cost, 1e-6)
}

func TestProfileBackfill_Monthly(t *testing.T) {
	// 2024-04-10 is a Wednesday; April 1..10 has 2 weekend days
	now := time.Date(2024, 4, 10, 8, 0, 0, 0, time.UTC)

	got := NewProfileBackfill(simulation.FixedSource(0.5)).Monthly(now)

	assert.Equal(t, 2024, got.Year)
	assert.Equal(t, 4, got.Month)
	require.Len(t, got.DailyData, 10)
	assert.Equal(t, 1, got.DailyData[0].Day)
	assert.Equal(t, "2024-04-10", got.DailyData[9].Date)

	total := 8*2200.0 + 2*1200.0
	assert.InDelta(t, total, got.Totals.EnergyKwh, 1e-6)
	assert.InDelta(t, total/10*30, got.Projected.EnergyKwh, 1e-6)
	assert.InDelta(t, total/10*30*0.12, got.Projected.Cost, 1e-6)
}

func TestProfileBackfill_NoiseRange(t *testing.T) {
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	b := NewProfileBackfill(simulation.NewSeededSource(3))

	for i := 0; i < 20; i++ {
		for _, d := range b.Weekly(now).DailyData {
			assert.GreaterOrEqual(t, d.EnergyKwh, 1200*0.9-0.01)
			assert.LessOrEqual(t, d.EnergyKwh, 2200*1.1+0.01)
		}
	}
}
