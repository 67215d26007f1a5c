package models

import (
	"math"
	"time"
)

// CostPerKwh is the fixed tariff applied to every reading
const CostPerKwh = 0.12

// Reading is one simulated sample for a building. Readings are append-only;
// (BuildingID, Timestamp) is unique.
type Reading struct {
	BuildingID   string    `json:"buildingId" db:"building_id"`
	Timestamp    time.Time `json:"timestamp" db:"ts"`
	BuildingName string    `json:"buildingName" db:"building_name"`
	BuildingType Category  `json:"buildingType" db:"building_type"`
	EnergyKwh    float64   `json:"energyKwh" db:"energy_kwh"`
	Temperature  float64   `json:"temperature" db:"temperature"`
	Occupancy    int       `json:"occupancy" db:"occupancy"`
	Cost         float64   `json:"cost" db:"cost"`
	// TTL is the unix second after which the store may expire the row
	TTL int64 `json:"ttl,omitempty" db:"ttl"`
}

// WithTTL returns a copy of r expiring retention after its timestamp
func (r Reading) WithTTL(retention time.Duration) Reading {
	r.TTL = r.Timestamp.Add(retention).Unix()
	return r
}

// ChangeEventType mirrors the change-stream event names emitted for the readings table
type ChangeEventType string

const (
	ChangeInsert ChangeEventType = "INSERT"
	ChangeModify ChangeEventType = "MODIFY"
	ChangeRemove ChangeEventType = "REMOVE"
)

// ChangeEvent is published for every persisted reading so that stream
// consumers (the alert checker) can react to new data.
type ChangeEvent struct {
	EventID   string          `json:"eventId"`
	EventName ChangeEventType `json:"eventName"`
	Reading   Reading         `json:"newImage"`
}

// Round2 rounds to two decimals (energy and currency)
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds to one decimal (temperature)
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// CostFor prices an energy figure at CostPerKwh, rounded to cents
func CostFor(energyKwh float64) float64 {
	return Round2(energyKwh * CostPerKwh)
}
