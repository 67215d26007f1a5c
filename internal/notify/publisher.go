package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"campus-energy/internal/models"
	"campus-energy/pkg/logging"
)

// Publisher delivers alert payloads to subscribers
type Publisher interface {
	Publish(ctx context.Context, alert models.AlertPayload) error
	Close() error
}

func encodeAlert(alert models.AlertPayload) ([]byte, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return nil, fmt.Errorf("failed to encode alert %s: %w", alert.AlertID, err)
	}
	return data, nil
}

// LogPublisher writes alerts to the structured log instead of a broker
type LogPublisher struct {
	logger *logging.StructuredLogger
}

func NewLogPublisher(logger *logging.StructuredLogger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, alert models.AlertPayload) error {
	p.logger.Warn(ctx, "[ALERT] "+alert.Subject, logging.Fields{
		"alert_id":    alert.AlertID,
		"building_id": alert.Building.ID,
		"alerts":      alert.Alerts,
		"energy_kwh":  alert.Reading.EnergyKwh,
		"temperature": alert.Reading.Temperature,
	})
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
