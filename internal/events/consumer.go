package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"voice-ledger-service/internal/models"
)

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers []string
	Topics  []string
	GroupID string
}

// messageReader is the subset of *kafka.Reader used by the consumer.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads record-stored events from one or more topics.
type Consumer struct {
	reader messageReader
}

// NewConsumer creates a consumer group reader over the configured topics.
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("events: no brokers configured")
	}
	if len(cfg.Topics) == 0 {
		return nil, errors.New("events: no topics configured")
	}
	if cfg.GroupID == "" {
		cfg.GroupID = fmt.Sprintf("voice-ledger-tail-%d", time.Now().UnixNano())
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
	})

	log.Info().
		Strs("brokers", cfg.Brokers).
		Strs("topics", cfg.Topics).
		Str("groupId", cfg.GroupID).
		Msg("Kafka consumer initialized")

	return &Consumer{reader: r}, nil
}

// Run delivers decoded events to handle until ctx is cancelled or handle
// returns an error. Undecodable messages are logged and skipped.
func (c *Consumer) Run(ctx context.Context, handle func(models.RecordStored) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("events: read message: %w", err)
		}

		ev, err := Decode(msg)
		if err != nil {
			log.Warn().Err(err).Str("topic", msg.Topic).Int64("offset", msg.Offset).Msg("Skipping undecodable event")
			continue
		}
		if err := handle(ev); err != nil {
			return err
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Decode parses a Kafka message into a RecordStored event.
func Decode(msg kafka.Message) (models.RecordStored, error) {
	var ev models.RecordStored
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return ev, fmt.Errorf("events: decode: %w", err)
	}
	if ev.EventType == "" {
		for _, h := range msg.Headers {
			if h.Key == "eventType" {
				ev.EventType = string(h.Value)
			}
		}
	}
	return ev, nil
}
