package notify

import (
	"context"
	"fmt"
	"time"

	nats "github.com/nats-io/nats.go"

	"campus-energy/internal/models"
)

const flushTimeout = 5 * time.Second

type natsConn interface {
	PublishMsg(m *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATSPublisher publishes alerts on a subject with attributes as headers
type NATSPublisher struct {
	conn    natsConn
	subject string
}

// NewNATSPublisher connects to url and publishes on subject
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		return nil, fmt.Errorf("nats subject must not be empty")
	}
	nc, err := nats.Connect(url,
		nats.Name("campus-energy-alerter"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(10),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to nats server: %w", err)
	}
	return &NATSPublisher{conn: nc, subject: subject}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, alert models.AlertPayload) error {
	data, err := encodeAlert(alert)
	if err != nil {
		return err
	}

	msg := nats.NewMsg(p.subject)
	msg.Data = data
	for k, v := range alert.Attributes() {
		msg.Header.Set(k, v)
	}

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("unable to publish to nats server: %w", err)
	}
	// FlushWithContext rejects contexts without a deadline
	flushCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		flushCtx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(flushCtx); err != nil {
		return fmt.Errorf("nats flush failed: %w", err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
