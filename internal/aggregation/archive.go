package aggregation

import (
	"fmt"
	"math"
	"time"

	"campus-energy/internal/models"
)

// ComputeBuildingMetrics aggregates one building's readings. Name and
// category come from the first reading. Returns nil for no readings.
func ComputeBuildingMetrics(readings []models.Reading) *models.BuildingMetrics {
	if len(readings) == 0 {
		return nil
	}

	first := readings[0]
	m := &models.BuildingMetrics{
		BuildingName:   first.BuildingName,
		BuildingType:   first.BuildingType,
		ReadingCount:   len(readings),
		MinEnergyKwh:   first.EnergyKwh,
		MaxEnergyKwh:   first.EnergyKwh,
		MinTemperature: first.Temperature,
		MaxTemperature: first.Temperature,
		MinOccupancy:   first.Occupancy,
		MaxOccupancy:   first.Occupancy,
	}

	var energy, cost, temperature float64
	var occupancy int
	for _, r := range readings {
		energy += r.EnergyKwh
		cost += r.Cost
		temperature += r.Temperature
		occupancy += r.Occupancy
		m.MinEnergyKwh = math.Min(m.MinEnergyKwh, r.EnergyKwh)
		m.MaxEnergyKwh = math.Max(m.MaxEnergyKwh, r.EnergyKwh)
		m.MinTemperature = math.Min(m.MinTemperature, r.Temperature)
		m.MaxTemperature = math.Max(m.MaxTemperature, r.Temperature)
		m.MinOccupancy = min(m.MinOccupancy, r.Occupancy)
		m.MaxOccupancy = max(m.MaxOccupancy, r.Occupancy)
	}

	n := float64(len(readings))
	m.TotalEnergyKwh = models.Round2(energy)
	m.TotalCost = models.Round2(cost)
	m.AvgEnergyKwh = models.Round2(energy / n)
	m.MinEnergyKwh = models.Round2(m.MinEnergyKwh)
	m.MaxEnergyKwh = models.Round2(m.MaxEnergyKwh)
	m.AverageTemperature = models.Round1(temperature / n)
	m.AverageOccupancy = int(math.Round(float64(occupancy) / n))
	return m
}

// Metric extracts a named value from building metrics
type Metric func(*models.BuildingMetrics) float64

var namedMetrics = map[string]Metric{
	"totalEnergyKwh":     func(m *models.BuildingMetrics) float64 { return m.TotalEnergyKwh },
	"totalCost":          func(m *models.BuildingMetrics) float64 { return m.TotalCost },
	"avgEnergyKwh":       func(m *models.BuildingMetrics) float64 { return m.AvgEnergyKwh },
	"minEnergyKwh":       func(m *models.BuildingMetrics) float64 { return m.MinEnergyKwh },
	"maxEnergyKwh":       func(m *models.BuildingMetrics) float64 { return m.MaxEnergyKwh },
	"averageTemperature": func(m *models.BuildingMetrics) float64 { return m.AverageTemperature },
	"averageOccupancy":   func(m *models.BuildingMetrics) float64 { return float64(m.AverageOccupancy) },
	"readingCount":       func(m *models.BuildingMetrics) float64 { return float64(m.ReadingCount) },
}

// MetricByName resolves a metric by its JSON field name
func MetricByName(name string) (Metric, error) {
	m, ok := namedMetrics[name]
	if !ok {
		return nil, &models.ValidationError{Field: "metric", Value: name, Message: fmt.Sprintf("unknown metric %q", name)}
	}
	return m, nil
}

// AverageMetric averages a metric over the results that carry metrics.
// Results without metrics are skipped; an empty set averages to 0.
func AverageMetric(results []models.BuildingResult, metric Metric) float64 {
	var sum float64
	var n int
	for _, r := range results {
		if r.Metrics == nil {
			continue
		}
		sum += metric(r.Metrics)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// HasData reports whether any result archived at least one reading
func HasData(results []models.BuildingResult) bool {
	for _, r := range results {
		if r.Count > 0 {
			return true
		}
	}
	return false
}

// Rollup builds the daily summary document from per-building results.
// Only buildings with readings are listed.
func Rollup(date string, generated time.Time, results []models.BuildingResult) models.DailyRollup {
	rollup := models.DailyRollup{
		Date:      date,
		Generated: generated.UTC().Truncate(time.Second),
		Buildings: make([]models.BuildingResult, 0, len(results)),
	}

	var energy, cost float64
	for _, r := range results {
		rollup.Totals.RecordCount += r.Count
		if r.Metrics != nil {
			energy += r.Metrics.TotalEnergyKwh
			cost += r.Metrics.TotalCost
		}
		if r.Count > 0 {
			rollup.Buildings = append(rollup.Buildings, models.BuildingResult{
				BuildingID: r.BuildingID,
				Count:      r.Count,
				Metrics:    r.Metrics,
			})
		}
	}

	rollup.Totals.BuildingCount = len(rollup.Buildings)
	rollup.Totals.TotalEnergyKwh = models.Round2(energy)
	rollup.Totals.TotalCost = models.Round2(cost)
	rollup.Totals.AverageTemperature = models.Round1(AverageMetric(results, namedMetrics["averageTemperature"]))
	rollup.Totals.AverageOccupancy = int(math.Round(AverageMetric(results, namedMetrics["averageOccupancy"])))
	return rollup
}

// HourFactor is the fixed campus-wide hour-of-day weighting
func HourFactor(hour int) float64 {
	switch {
	case hour < 8:
		return 0.6
	case hour < 12:
		return 1.2
	case hour < 17:
		return 1.5
	case hour < 22:
		return 0.9
	default:
		return 0.5
	}
}

// HourLabel formats an hour as "HH:00"
func HourLabel(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// FlattenHourly spreads each building's average energy over 24 hours using
// HourFactor. No noise is applied.
func FlattenHourly(date string, results []models.BuildingResult) models.HourlyArchive {
	out := models.HourlyArchive{
		Date:       date,
		Source:     models.SourceReconstructed,
		HourlyData: make([]models.HourlyBucket, 0, 24),
	}
	for hour := 0; hour < 24; hour++ {
		var total float64
		for _, r := range results {
			if r.Count == 0 || r.Metrics == nil {
				continue
			}
			total += r.Metrics.AvgEnergyKwh * HourFactor(hour)
		}
		out.HourlyData = append(out.HourlyData, models.HourlyBucket{
			Hour:      HourLabel(hour),
			EnergyKwh: models.Round2(total),
			Cost:      models.CostFor(total),
		})
	}
	return out
}
