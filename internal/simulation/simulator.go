package simulation

import (
	"math"
	"time"

	"campus-energy/internal/models"
)

const (
	baseTemperatureF     = 68.0
	temperatureSpreadF   = 6.0
	occupancyWarmingF    = 2.0
	perOccupantLoadKW    = 0.1
	floorScaleBase       = 0.8
	floorScalePerFloor   = 0.05
	energyNoiseLow       = 0.95
	energyNoiseHigh      = 1.05
	weekendPeakFactor    = 1.2
	weekdayEveningFactor = 1.5
	weekendEveningFactor = 1.1
	peakStartHour        = 8
	peakEndHour          = 17
	eveningStartHour     = 18
	eveningEndHour       = 22
)

// Simulator turns a building profile and an instant into a synthetic reading.
// It holds no mutable state besides its noise source.
type Simulator struct {
	noise    Source
	location *time.Location
}

// Option configures a Simulator
type Option func(*Simulator)

// WithLocation evaluates hour and weekday in loc instead of UTC
func WithLocation(loc *time.Location) Option {
	return func(s *Simulator) {
		if loc != nil {
			s.location = loc
		}
	}
}

// NewSimulator creates a simulator drawing randomness from noise
func NewSimulator(noise Source, opts ...Option) *Simulator {
	if noise == nil {
		noise = NewTimeSource()
	}
	s := &Simulator{noise: noise, location: time.UTC}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulate produces the reading for building b at instant at. The temperature
// sample is drawn before the energy noise sample.
func (s *Simulator) Simulate(b models.BuildingProfile, at time.Time) models.Reading {
	local := at.In(s.location)
	hour := local.Hour()
	day := local.Weekday()

	fraction := Occupancy(hour, day, b.Category)

	baseTemp := Uniform(s.noise, baseTemperatureF, baseTemperatureF+temperatureSpreadF)
	temperature := models.Round1(baseTemp + fraction*occupancyWarmingF)

	occupants := int(math.Round(float64(b.Capacity) * fraction))

	energy := Energy(b, fraction, hour, IsWeekend(day))
	energy *= Uniform(s.noise, energyNoiseLow, energyNoiseHigh)
	energy = models.Round2(math.Max(energy, 0))

	return models.Reading{
		BuildingID:   b.ID,
		Timestamp:    at.UTC().Truncate(time.Second),
		BuildingName: b.Name,
		BuildingType: b.Category,
		EnergyKwh:    energy,
		Temperature:  temperature,
		Occupancy:    occupants,
		Cost:         models.CostFor(energy),
	}
}

// Energy is the noise-free consumption model
func Energy(b models.BuildingProfile, fraction float64, hour int, weekend bool) float64 {
	energy := b.BaseLoadKW + float64(b.Capacity)*fraction*perOccupantLoadKW
	energy *= TimeFactor(b, hour, weekend)
	energy *= floorScaleBase + float64(b.Floors)*floorScalePerFloor
	return energy
}

// TimeFactor is the time-of-day load multiplier
func TimeFactor(b models.BuildingProfile, hour int, weekend bool) float64 {
	switch {
	case hour >= peakStartHour && hour <= peakEndHour:
		if weekend {
			return weekendPeakFactor
		}
		return b.PeakMultiplier
	case hour >= eveningStartHour && hour <= eveningEndHour:
		if weekend {
			return weekendEveningFactor
		}
		return weekdayEveningFactor
	default:
		return 1.0
	}
}
