package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"campus-energy/internal/models"
	"campus-energy/pkg/logging"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures a topic writer
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	RequiredAcks int
	BatchTimeout time.Duration
}

func newWriter(cfg KafkaConfig) (*kafka.Writer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic must not be empty")
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 50 * time.Millisecond
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		BatchTimeout:           batchTimeout,
		AllowAutoTopicCreation: false,
	}, nil
}

// KafkaPublisher publishes alerts keyed by building id, with the payload
// attributes carried as message headers.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	w, err := newWriter(cfg)
	if err != nil {
		return nil, err
	}
	return &KafkaPublisher{writer: w}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, alert models.AlertPayload) error {
	value, err := encodeAlert(alert)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(alert.Building.ID),
		Value: value,
		Time:  alert.Timestamp,
	}
	for k, v := range alert.Attributes() {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish alert %s: %w", alert.AlertID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// ChangePublisher emits a change event for every persisted reading
type ChangePublisher interface {
	PublishChanges(ctx context.Context, events ...models.ChangeEvent) error
	Close() error
}

// KafkaChangePublisher writes change events keyed by building id so that
// a building's events stay ordered within one partition.
type KafkaChangePublisher struct {
	writer messageWriter
}

func NewKafkaChangePublisher(cfg KafkaConfig) (*KafkaChangePublisher, error) {
	w, err := newWriter(cfg)
	if err != nil {
		return nil, err
	}
	return &KafkaChangePublisher{writer: w}, nil
}

func (p *KafkaChangePublisher) PublishChanges(ctx context.Context, events ...models.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		value, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to encode change event %s: %w", ev.EventID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(ev.Reading.BuildingID),
			Value:   value,
			Headers: []kafka.Header{{Key: "eventName", Value: []byte(ev.EventName)}},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish %d change events: %w", len(msgs), err)
	}
	return nil
}

func (p *KafkaChangePublisher) Close() error {
	return p.writer.Close()
}

// NopChangePublisher discards change events
type NopChangePublisher struct{}

func (NopChangePublisher) PublishChanges(context.Context, ...models.ChangeEvent) error {
	return nil
}

func (NopChangePublisher) Close() error {
	return nil
}

// ConsumerConfig configures a consumer-group reader
type ConsumerConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	BatchSize   int
	PollTimeout time.Duration
}

// ChangeHandler processes a batch of decoded change events
type ChangeHandler func(ctx context.Context, events []models.ChangeEvent) error

// KafkaChangeConsumer reads change events and hands them to a handler in
// small batches. Offsets are committed only after the handler succeeds.
type KafkaChangeConsumer struct {
	cfg    ConsumerConfig
	reader messageReader
	logger *logging.StructuredLogger
}

func NewKafkaChangeConsumer(cfg ConsumerConfig, logger *logging.StructuredLogger) (*KafkaChangeConsumer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" || cfg.GroupID == "" {
		return nil, errors.New("kafka consumer requires brokers, topic and group id")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return newKafkaChangeConsumer(cfg, reader, logger), nil
}

func newKafkaChangeConsumer(cfg ConsumerConfig, reader messageReader, logger *logging.StructuredLogger) *KafkaChangeConsumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Second
	}
	return &KafkaChangeConsumer{cfg: cfg, reader: reader, logger: logger}
}

// Run consumes until ctx is cancelled. A batch is flushed when it is full
// or when no message arrives within the poll timeout.
func (c *KafkaChangeConsumer) Run(ctx context.Context, handle ChangeHandler) error {
	var (
		events []models.ChangeEvent
		msgs   []kafka.Message
	)

	flush := func() error {
		if len(msgs) == 0 {
			return nil
		}
		if err := handle(ctx, events); err != nil {
			return fmt.Errorf("change handler failed: %w", err)
		}
		if err := c.reader.CommitMessages(ctx, msgs...); err != nil {
			c.logger.Error(ctx, "[CONSUMER_COMMIT_ERROR] Failed to commit offsets", logging.Fields{
				"count": len(msgs),
			}, err)
		}
		events, msgs = nil, nil
		return nil
	}

	for {
		fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
		msg, err := c.reader.FetchMessage(fetchCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				if err := flush(); err != nil {
					return err
				}
				continue
			}
			return fmt.Errorf("failed to fetch change event: %w", err)
		}

		var ev models.ChangeEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.logger.Warn(ctx, "[CONSUMER_DECODE_ERROR] Skipping undecodable change event", logging.Fields{
				"partition": msg.Partition,
				"offset":    msg.Offset,
				"error":     err.Error(),
			})
		} else {
			events = append(events, ev)
		}
		msgs = append(msgs, msg)

		if len(msgs) >= c.cfg.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
}

func (c *KafkaChangeConsumer) Close() error {
	return c.reader.Close()
}
