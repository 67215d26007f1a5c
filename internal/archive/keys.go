package archive

import (
	"fmt"
	"path"
	"strings"
	"time"

	"campus-energy/internal/models"
)

const (
	buildingsDir    = "buildings"
	summaryFile     = "summary.json"
	hourlyFile      = "hourly-data.json"
	buildingFileExt = ".json"
)

// DayPrefix is the "yyyy/mm/dd" prefix holding a day's archive
func DayPrefix(day time.Time) string {
	return day.Format("2006/01/02")
}

// BuildingKey locates a building's archive document for day
func BuildingKey(day time.Time, buildingID string) string {
	return path.Join(DayPrefix(day), buildingsDir, buildingID+buildingFileExt)
}

// BuildingsPrefix is the prefix listing every building archived for day
func BuildingsPrefix(day time.Time) string {
	return path.Join(DayPrefix(day), buildingsDir) + "/"
}

// SummaryKey locates the daily roll-up
func SummaryKey(day time.Time) string {
	return path.Join(DayPrefix(day), summaryFile)
}

// HourlyKey locates the flattened hourly series
func HourlyKey(day time.Time) string {
	return path.Join(DayPrefix(day), hourlyFile)
}

// BuildingIDFromKey extracts the building id from a BuildingKey
func BuildingIDFromKey(key string) (string, bool) {
	dir, file := path.Split(key)
	if path.Base(dir) != buildingsDir || !strings.HasSuffix(file, buildingFileExt) {
		return "", false
	}
	return strings.TrimSuffix(file, buildingFileExt), true
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, &models.ValidationError{Field: "date", Message: "date parameter is required (YYYY-MM-DD)"}
	}
	day, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, &models.ValidationError{Field: "date", Value: s, Message: fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s)}
	}
	return day, nil
}

// DayBounds returns the first and last second of day in UTC
func DayBounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return start, start.Add(24*time.Hour - time.Second)
}
