package aggregation

import (
	"math"
	"sort"

	"campus-energy/internal/models"
)

// DefaultWindow is the number of recent readings summarized per building
const DefaultWindow = 12

// LatestPerBuilding keeps the newest reading per building. A strictly greater
// timestamp replaces the held reading, so ties keep the first occurrence.
// Buildings appear in order of first occurrence.
func LatestPerBuilding(readings []models.Reading) []models.Reading {
	index := make(map[string]int)
	latest := make([]models.Reading, 0)

	for _, r := range readings {
		i, seen := index[r.BuildingID]
		if !seen {
			index[r.BuildingID] = len(latest)
			latest = append(latest, r)
			continue
		}
		if r.Timestamp.After(latest[i].Timestamp) {
			latest[i] = r
		}
	}
	return latest
}

// Current totals the given latest-per-building readings
func Current(latest []models.Reading) models.CurrentSummary {
	var energy, cost float64
	for _, r := range latest {
		energy += r.EnergyKwh
		cost += r.Cost
	}
	return models.CurrentSummary{
		BuildingCount:  len(latest),
		TotalEnergyKwh: models.Round2(energy),
		TotalCost:      models.Round2(cost),
	}
}

// SummarizeWindow summarizes the newest window readings of one building.
// The second return value is false when there are no readings.
func SummarizeWindow(buildingID string, readings []models.Reading, window int) (models.BuildingWindowSummary, bool) {
	if len(readings) == 0 {
		return models.BuildingWindowSummary{}, false
	}
	if window <= 0 {
		window = DefaultWindow
	}

	sorted := make([]models.Reading, len(readings))
	copy(sorted, readings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	if len(sorted) > window {
		sorted = sorted[:window]
	}

	var energy, temperature float64
	var occupancy int
	for _, r := range sorted {
		energy += r.EnergyKwh
		temperature += r.Temperature
		occupancy += r.Occupancy
	}
	n := float64(len(sorted))
	latest := sorted[0]

	return models.BuildingWindowSummary{
		BuildingID:   buildingID,
		BuildingName: latest.BuildingName,
		BuildingType: latest.BuildingType,
		Latest:       latest,
		HourlyAverage: models.WindowAverage{
			EnergyKwh:   models.Round2(energy / n),
			Occupancy:   int(math.Round(float64(occupancy) / n)),
			Temperature: models.Round1(temperature / n),
		},
		Readings: sorted,
	}, true
}
