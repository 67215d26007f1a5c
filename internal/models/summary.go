package models

import "time"

// Source tells API consumers where a summary's numbers come from
type Source string

const (
	// SourceReconstructed marks bucket values synthesized by a back-fill
	// strategy rather than read from history.
	SourceReconstructed Source = "reconstructed"
	SourceArchive       Source = "archive"
	SourceStore         Source = "store"
)

// Period selects a bucketed summary
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// Totals is an energy/cost pair rounded to two decimals
type Totals struct {
	EnergyKwh float64 `json:"energyKwh"`
	Cost      float64 `json:"cost"`
}

// CurrentSummary totals the latest reading of every building
type CurrentSummary struct {
	BuildingCount  int     `json:"buildingCount"`
	TotalEnergyKwh float64 `json:"totalEnergyKwh"`
	TotalCost      float64 `json:"totalCost"`
}

// CurrentReadings is the dashboard's "current" view
type CurrentReadings struct {
	Timestamp time.Time      `json:"timestamp"`
	Readings  []Reading      `json:"readings"`
	Summary   CurrentSummary `json:"summary"`
}

// WindowAverage holds the means over a building's recent window
type WindowAverage struct {
	EnergyKwh   float64 `json:"energyKwh"`
	Occupancy   int     `json:"occupancy"`
	Temperature float64 `json:"temperature"`
}

// BuildingWindowSummary is the per-building view over its most recent readings
type BuildingWindowSummary struct {
	BuildingID    string        `json:"buildingId"`
	BuildingName  string        `json:"buildingName"`
	BuildingType  Category      `json:"buildingType"`
	Timestamp     time.Time     `json:"timestamp"`
	Latest        Reading       `json:"latest"`
	HourlyAverage WindowAverage `json:"hourlyAverage"`
	Readings      []Reading     `json:"readings"`
}

// NoData is the explicit empty result for lookups that matched nothing
type NoData struct {
	Message string `json:"message"`
}

// HourlyBucket is one hour of a daily series
type HourlyBucket struct {
	Hour      string  `json:"hour"`
	EnergyKwh float64 `json:"energyKwh"`
	Cost      float64 `json:"cost"`
}

// WeekdayBucket is one day of a weekly series
type WeekdayBucket struct {
	Date      string  `json:"date"`
	Day       string  `json:"day"`
	EnergyKwh float64 `json:"energyKwh"`
	Cost      float64 `json:"cost"`
}

// MonthDayBucket is one day of a monthly series
type MonthDayBucket struct {
	Date      string  `json:"date"`
	Day       int     `json:"day"`
	EnergyKwh float64 `json:"energyKwh"`
	Cost      float64 `json:"cost"`
}

// DailySummary buckets today by hour
type DailySummary struct {
	Date       string         `json:"date"`
	Source     Source         `json:"source"`
	HourlyData []HourlyBucket `json:"hourlyData"`
	Totals     Totals         `json:"totals"`
}

// WeeklySummary buckets the last seven days
type WeeklySummary struct {
	StartDate string          `json:"startDate"`
	EndDate   string          `json:"endDate"`
	Source    Source          `json:"source"`
	DailyData []WeekdayBucket `json:"dailyData"`
	Totals    Totals          `json:"totals"`
}

// MonthlySummary buckets the current month up to today and projects the full month
type MonthlySummary struct {
	Year      int              `json:"year"`
	Month     int              `json:"month"`
	Source    Source           `json:"source"`
	DailyData []MonthDayBucket `json:"dailyData"`
	Totals    Totals           `json:"totals"`
	Projected Totals           `json:"projected"`
}

// SummaryResponse is the dashboard's "summary" view
type SummaryResponse struct {
	Timestamp time.Time      `json:"timestamp"`
	Period    Period         `json:"period"`
	Current   CurrentSummary `json:"current"`
	Summary   interface{}    `json:"summary"`
}

// BuildingMetrics aggregates one building's readings for a day
type BuildingMetrics struct {
	BuildingName       string   `json:"buildingName"`
	BuildingType       Category `json:"buildingType"`
	ReadingCount       int      `json:"readingCount"`
	TotalEnergyKwh     float64  `json:"totalEnergyKwh"`
	TotalCost          float64  `json:"totalCost"`
	AvgEnergyKwh       float64  `json:"avgEnergyKwh"`
	MinEnergyKwh       float64  `json:"minEnergyKwh"`
	MaxEnergyKwh       float64  `json:"maxEnergyKwh"`
	AverageTemperature float64  `json:"averageTemperature"`
	MinTemperature     float64  `json:"minTemperature"`
	MaxTemperature     float64  `json:"maxTemperature"`
	AverageOccupancy   int      `json:"averageOccupancy"`
	MinOccupancy       int      `json:"minOccupancy"`
	MaxOccupancy       int      `json:"maxOccupancy"`
}

// BuildingArchive is the per-building archive document
type BuildingArchive struct {
	BuildingID string           `json:"buildingId"`
	Date       string           `json:"date"`
	Readings   []Reading        `json:"readings"`
	Metrics    *BuildingMetrics `json:"metrics"`
}

// BuildingResult is the outcome of archiving one building; Count is 0 when
// the building had no data or failed.
type BuildingResult struct {
	BuildingID string           `json:"buildingId"`
	Count      int              `json:"recordCount"`
	Metrics    *BuildingMetrics `json:"metrics,omitempty"`
	Err        error            `json:"-"`
}

// RollupTotals are the campus-wide figures of a daily roll-up
type RollupTotals struct {
	BuildingCount      int     `json:"buildingCount"`
	RecordCount        int     `json:"recordCount"`
	TotalEnergyKwh     float64 `json:"totalEnergyKwh"`
	TotalCost          float64 `json:"totalCost"`
	AverageTemperature float64 `json:"averageTemperature"`
	AverageOccupancy   int     `json:"averageOccupancy"`
}

// DailyRollup is the summary.json archive document
type DailyRollup struct {
	Date      string           `json:"date"`
	Generated time.Time        `json:"generated"`
	Buildings []BuildingResult `json:"buildings"`
	Totals    RollupTotals     `json:"totals"`
}

// HourlyArchive is the hourly-data.json archive document
type HourlyArchive struct {
	Date       string         `json:"date"`
	Source     Source         `json:"source"`
	HourlyData []HourlyBucket `json:"hourlyData"`
}

// HistoricalData is the dashboard's "historical" view of one day
type HistoricalData struct {
	Date       string    `json:"date"`
	Source     Source    `json:"source"`
	BuildingID string    `json:"buildingId,omitempty"`
	Readings   []Reading `json:"readings"`
}
