package aggregation

import (
	"time"

	"campus-energy/internal/models"
	"campus-energy/internal/simulation"
)

const (
	weekdayDailyKwh = 2200.0
	weekendDailyKwh = 1200.0
	backfillNoiseLo = 0.9
	backfillNoiseHi = 1.1
)

var weekdayAbbrev = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Backfill synthesizes bucket values for periods the platform keeps no
// bucketed history for. Every summary it returns is labelled reconstructed.
type Backfill interface {
	Daily(now time.Time, latest []models.Reading) models.DailySummary
	Weekly(now time.Time) models.WeeklySummary
	Monthly(now time.Time) models.MonthlySummary
}

// ProfileBackfill shapes buckets with hour-of-day and day-of-week profiles
// and perturbs each bucket with uniform noise in [0.9, 1.1).
type ProfileBackfill struct {
	noise simulation.Source
}

func NewProfileBackfill(noise simulation.Source) *ProfileBackfill {
	if noise == nil {
		noise = simulation.NewTimeSource()
	}
	return &ProfileBackfill{noise: noise}
}

// categoryHourFactor adjusts HourFactor for categories with distinct daily shapes
func categoryHourFactor(category models.Category, hour int) float64 {
	switch category {
	case models.CategoryAcademic:
		if hour >= 8 && hour <= 17 {
			return 1.3
		}
		return 0.5
	case models.CategoryResidential:
		if hour >= 17 || hour <= 8 {
			return 1.4
		}
		return 0.7
	default:
		return 1.0
	}
}

// Daily buckets hours 0 through the current hour, scaling each building's
// latest energy figure.
func (p *ProfileBackfill) Daily(now time.Time, latest []models.Reading) models.DailySummary {
	out := models.DailySummary{
		Date:       now.Format(time.DateOnly),
		Source:     models.SourceReconstructed,
		HourlyData: make([]models.HourlyBucket, 0, now.Hour()+1),
	}

	for hour := 0; hour <= now.Hour(); hour++ {
		var total float64
		for _, r := range latest {
			factor := HourFactor(hour) * categoryHourFactor(r.BuildingType, hour)
			factor *= simulation.Uniform(p.noise, backfillNoiseLo, backfillNoiseHi)
			total += r.EnergyKwh * factor
		}
		out.HourlyData = append(out.HourlyData, models.HourlyBucket{
			Hour:      HourLabel(hour),
			EnergyKwh: models.Round2(total),
			Cost:      models.CostFor(total),
		})
	}

	for _, b := range out.HourlyData {
		out.Totals.EnergyKwh += b.EnergyKwh
		out.Totals.Cost += b.Cost
	}
	out.Totals = roundTotals(out.Totals)
	return out
}

// Weekly buckets the seven days ending today
func (p *ProfileBackfill) Weekly(now time.Time) models.WeeklySummary {
	out := models.WeeklySummary{
		Source:    models.SourceReconstructed,
		DailyData: make([]models.WeekdayBucket, 0, 7),
	}

	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		energy := p.dayEnergy(day.Weekday())
		out.DailyData = append(out.DailyData, models.WeekdayBucket{
			Date:      day.Format(time.DateOnly),
			Day:       weekdayAbbrev[day.Weekday()],
			EnergyKwh: models.Round2(energy),
			Cost:      models.CostFor(energy),
		})
		out.Totals.EnergyKwh += models.Round2(energy)
		out.Totals.Cost += models.CostFor(energy)
	}

	out.StartDate = out.DailyData[0].Date
	out.EndDate = out.DailyData[len(out.DailyData)-1].Date
	out.Totals = roundTotals(out.Totals)
	return out
}

// Monthly buckets days 1 through today and projects the full month
func (p *ProfileBackfill) Monthly(now time.Time) models.MonthlySummary {
	year, month, today := now.Date()
	days := DaysIn(year, month)
	elapsed := min(today, days)

	out := models.MonthlySummary{
		Year:      year,
		Month:     int(month),
		Source:    models.SourceReconstructed,
		DailyData: make([]models.MonthDayBucket, 0, elapsed),
	}

	for d := 1; d <= elapsed; d++ {
		day := time.Date(year, month, d, 0, 0, 0, 0, now.Location())
		energy := p.dayEnergy(day.Weekday())
		out.DailyData = append(out.DailyData, models.MonthDayBucket{
			Date:      day.Format(time.DateOnly),
			Day:       d,
			EnergyKwh: models.Round2(energy),
			Cost:      models.CostFor(energy),
		})
		out.Totals.EnergyKwh += models.Round2(energy)
		out.Totals.Cost += models.CostFor(energy)
	}

	out.Totals = roundTotals(out.Totals)
	out.Projected = ProjectMonth(out.Totals.EnergyKwh, elapsed, days)
	return out
}

func (p *ProfileBackfill) dayEnergy(day time.Weekday) float64 {
	base := weekdayDailyKwh
	if simulation.IsWeekend(day) {
		base = weekendDailyKwh
	}
	return base * simulation.Uniform(p.noise, backfillNoiseLo, backfillNoiseHi)
}

// ProjectMonth extrapolates a month-to-date total over the whole month
func ProjectMonth(total float64, daysElapsed, daysInMonth int) models.Totals {
	if daysElapsed <= 0 {
		return models.Totals{}
	}
	projected := total / float64(daysElapsed) * float64(daysInMonth)
	return models.Totals{
		EnergyKwh: models.Round2(projected),
		Cost:      models.CostFor(projected),
	}
}

// DaysIn returns the number of days in month
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func roundTotals(t models.Totals) models.Totals {
	return models.Totals{EnergyKwh: models.Round2(t.EnergyKwh), Cost: models.Round2(t.Cost)}
}
