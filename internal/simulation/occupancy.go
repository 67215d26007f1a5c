package simulation

import (
	"time"

	"campus-energy/internal/models"
)

// DefaultOccupancy applies to categories without a dedicated schedule, any day
const DefaultOccupancy = 0.2

// band is a piecewise-constant segment: fraction applies while hour < until
type band struct {
	until    int
	fraction float64
}

type schedule struct {
	weekday []band
	weekend []band
}

// Band tables; the last entry of each list covers the rest of the day.
var schedules = map[models.Category]schedule{
	models.CategoryAcademic: {
		weekday: []band{{7, 0.05}, {9, 0.3}, {16, 0.85}, {20, 0.4}, {24, 0.1}},
		weekend: []band{{8, 0}, {18, 0.1}, {24, 0}},
	},
	models.CategoryResidential: {
		weekday: []band{{7, 0.8}, {9, 0.5}, {16, 0.2}, {20, 0.6}, {24, 0.75}},
		weekend: []band{{8, 0.7}, {12, 0.4}, {17, 0.3}, {22, 0.5}, {24, 0.6}},
	},
	models.CategoryLaboratory: {
		weekday: []band{{7, 0.1}, {9, 0.4}, {18, 0.7}, {22, 0.3}, {24, 0.1}},
		weekend: []band{{8, 0.05}, {18, 0.2}, {24, 0.05}},
	},
	models.CategoryAdministrative: {
		weekday: []band{{7, 0.05}, {9, 0.5}, {17, 0.9}, {19, 0.3}, {24, 0.05}},
		weekend: []band{{8, 0}, {18, 0.1}, {24, 0}},
	},
}

// IsWeekend reports whether day is Saturday or Sunday
func IsWeekend(day time.Weekday) bool {
	return day == time.Sunday || day == time.Saturday
}

// Occupancy returns the expected fraction of capacity present in a building
// of the given category. Hours outside 0..23 are clamped.
func Occupancy(hour int, day time.Weekday, category models.Category) float64 {
	s, ok := schedules[category]
	if !ok {
		return DefaultOccupancy
	}

	bands := s.weekday
	if IsWeekend(day) {
		bands = s.weekend
	}

	hour = clampHour(hour)
	for _, b := range bands {
		if hour < b.until {
			return b.fraction
		}
	}
	return bands[len(bands)-1].fraction
}

func clampHour(hour int) int {
	if hour < 0 {
		return 0
	}
	if hour > 23 {
		return 23
	}
	return hour
}
