package alerts

import (
	"fmt"
	"strconv"

	"campus-energy/internal/models"
)

const (
	// MinTemperatureF and MaxTemperatureF bound the comfort band, inclusive
	MinTemperatureF = 65.0
	MaxTemperatureF = 78.0
)

// Thresholds maps a category to its energy ceiling in kWh per reading
type Thresholds map[models.Category]float64

// DefaultThresholds is the campus threshold table
func DefaultThresholds() Thresholds {
	return Thresholds{
		models.CategoryAcademic:       200,
		models.CategoryResidential:    150,
		models.CategoryLaboratory:     300,
		models.CategoryAdministrative: 180,
	}
}

// Ceiling returns the energy ceiling for category; unknown categories use
// the academic ceiling.
func (t Thresholds) Ceiling(category models.Category) float64 {
	if v, ok := t[category]; ok {
		return v
	}
	return t[models.CategoryAcademic]
}

// Evaluator compares readings against a threshold table
type Evaluator struct {
	thresholds Thresholds
}

// NewEvaluator overlays thresholds on the default table
func NewEvaluator(thresholds Thresholds) *Evaluator {
	table := DefaultThresholds()
	for category, ceiling := range thresholds {
		table[category] = ceiling
	}
	return &Evaluator{thresholds: table}
}

// Evaluate returns the violations for r in a fixed order: energy first, then
// temperature. An empty result means no alert.
func (e *Evaluator) Evaluate(r models.Reading) []models.Violation {
	var out []models.Violation

	ceiling := e.thresholds.Ceiling(r.BuildingType)
	if r.EnergyKwh > ceiling {
		out = append(out, models.Violation{
			Kind:      models.ViolationHighEnergy,
			Observed:  r.EnergyKwh,
			Threshold: ceiling,
			Message:   fmt.Sprintf("High energy consumption: %s kWh (threshold: %s kWh)", formatNumber(r.EnergyKwh), formatNumber(ceiling)),
		})
	}

	switch {
	case r.Temperature < MinTemperatureF:
		out = append(out, models.Violation{
			Kind:      models.ViolationLowTemperature,
			Observed:  r.Temperature,
			Threshold: MinTemperatureF,
			Message:   fmt.Sprintf("Low temperature: %s°F (minimum: %s°F)", formatNumber(r.Temperature), formatNumber(MinTemperatureF)),
		})
	case r.Temperature > MaxTemperatureF:
		out = append(out, models.Violation{
			Kind:      models.ViolationHighTemperature,
			Observed:  r.Temperature,
			Threshold: MaxTemperatureF,
			Message:   fmt.Sprintf("High temperature: %s°F (maximum: %s°F)", formatNumber(r.Temperature), formatNumber(MaxTemperatureF)),
		})
	}

	return out
}

// Check wraps Evaluate into an AlertEvent; ok is false when nothing was violated
func (e *Evaluator) Check(r models.Reading) (models.AlertEvent, bool) {
	violations := e.Evaluate(r)
	if len(violations) == 0 {
		return models.AlertEvent{}, false
	}
	return models.AlertEvent{
		BuildingID: r.BuildingID,
		Timestamp:  r.Timestamp,
		Violations: violations,
	}, true
}

// formatNumber prints the shortest decimal form, so 200 prints as "200"
// and 356.36 as "356.36".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
