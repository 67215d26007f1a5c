package models

import "time"

// ViolationKind names the threshold that was breached
type ViolationKind string

const (
	ViolationHighEnergy      ViolationKind = "high_energy"
	ViolationLowTemperature  ViolationKind = "low_temperature"
	ViolationHighTemperature ViolationKind = "high_temperature"
)

// Violation is one breached threshold for a reading
type Violation struct {
	Kind      ViolationKind `json:"kind"`
	Observed  float64       `json:"observed"`
	Threshold float64       `json:"threshold"`
	Message   string        `json:"message"`
}

// AlertEvent is derived from a reading; it is never persisted by the platform
type AlertEvent struct {
	BuildingID string      `json:"buildingId"`
	Timestamp  time.Time   `json:"timestamp"`
	Violations []Violation `json:"violations"`
}

// Messages returns the violation messages in order
func (a AlertEvent) Messages() []string {
	out := make([]string, len(a.Violations))
	for i, v := range a.Violations {
		out[i] = v.Message
	}
	return out
}

// AlertType is the only alert type the platform emits
const AlertType = "EnergyConsumptionAlert"

// AlertBuilding identifies the building in an alert payload
type AlertBuilding struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Type Category `json:"type"`
}

// AlertReading is the reading snapshot carried by an alert payload
type AlertReading struct {
	Timestamp   time.Time `json:"timestamp"`
	EnergyKwh   float64   `json:"energyKwh"`
	Temperature float64   `json:"temperature"`
	Occupancy   int       `json:"occupancy"`
	Cost        float64   `json:"cost"`
}

// AlertPayload is the message delivered to the alert topic
type AlertPayload struct {
	AlertID       string        `json:"alertId"`
	AlertType     string        `json:"alertType"`
	Timestamp     time.Time     `json:"timestamp"`
	Subject       string        `json:"subject"`
	Building      AlertBuilding `json:"building"`
	Reading       AlertReading  `json:"reading"`
	Alerts        []string      `json:"alerts"`
	DashboardLink string        `json:"dashboardLink"`
}

// Attributes are the routing attributes attached to a published alert
func (p AlertPayload) Attributes() map[string]string {
	return map[string]string{
		"BuildingId":   p.Building.ID,
		"BuildingType": string(p.Building.Type),
		"AlertType":    p.AlertType,
	}
}
