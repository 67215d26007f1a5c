package models

import "fmt"

// Category classifies a building; it drives occupancy schedules and alert thresholds.
// The set is open: unknown categories are valid and fall back to defaults.
type Category string

const (
	CategoryAcademic       Category = "academic"
	CategoryResidential    Category = "residential"
	CategoryLaboratory     Category = "laboratory"
	CategoryAdministrative Category = "administrative"
)

// KnownCategories lists the categories with dedicated schedules and thresholds
func KnownCategories() []Category {
	return []Category{CategoryAcademic, CategoryResidential, CategoryLaboratory, CategoryAdministrative}
}

// BuildingProfile is the immutable description of a simulated building
type BuildingProfile struct {
	ID             string   `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	Category       Category `json:"type" yaml:"type"`
	Capacity       int      `json:"capacity" yaml:"capacity"`
	Floors         int      `json:"floors" yaml:"floors"`
	BaseLoadKW     float64  `json:"baseLoad" yaml:"baseLoad"`
	PeakMultiplier float64  `json:"peakMultiplier" yaml:"peakMultiplier"`
}

// Validate checks the profile invariants
func (b BuildingProfile) Validate() error {
	switch {
	case b.ID == "":
		return &ValidationError{Field: "id", Value: b.ID, Message: "building id is required"}
	case b.Category == "":
		return &ValidationError{Field: "type", Value: b.ID, Message: fmt.Sprintf("building %s: category is required", b.ID)}
	case b.Capacity <= 0:
		return &ValidationError{Field: "capacity", Value: fmt.Sprint(b.Capacity), Message: fmt.Sprintf("building %s: capacity must be positive", b.ID)}
	case b.Floors <= 0:
		return &ValidationError{Field: "floors", Value: fmt.Sprint(b.Floors), Message: fmt.Sprintf("building %s: floors must be positive", b.ID)}
	case b.BaseLoadKW <= 0:
		return &ValidationError{Field: "baseLoad", Value: fmt.Sprint(b.BaseLoadKW), Message: fmt.Sprintf("building %s: base load must be positive", b.ID)}
	case b.PeakMultiplier < 1:
		return &ValidationError{Field: "peakMultiplier", Value: fmt.Sprint(b.PeakMultiplier), Message: fmt.Sprintf("building %s: peak multiplier must be >= 1", b.ID)}
	}
	return nil
}
