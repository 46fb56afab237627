// Package events publishes and consumes record-stored events on Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"voice-ledger-service/internal/models"
	"voice-ledger-service/internal/observability/metrics"
)

// messageWriter is the subset of *kafka.Writer used by the publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher publishes stored records to separate Kafka topics for
// transactions and notes.
type Publisher struct {
	writerTransactions messageWriter
	writerNotes        messageWriter
	principal          string
	topicTransactions  string
	topicNotes         string
	enabled            bool
	metrics            *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers           []string
	TopicTransactions string
	TopicNotes        string
	Principal         string
	Enabled           bool
}

// New creates a new Kafka event publisher. A nil or disabled config yields a
// publisher that only logs events.
func New(cfg *Config) *Publisher {
	return NewWithMetrics(cfg, metrics.DefaultMetrics)
}

// NewWithMetrics is New with an explicit metrics instance.
func NewWithMetrics(cfg *Config, m *metrics.Metrics) *Publisher {
	if m == nil {
		m = metrics.DefaultMetrics
	}

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:         cfg.Principal,
			topicTransactions: cfg.TopicTransactions,
			topicNotes:        cfg.TopicNotes,
			enabled:           false,
			metrics:           m,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicTransactions", cfg.TopicTransactions).
		Str("topicNotes", cfg.TopicNotes).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerTransactions: newWriter(cfg.TopicTransactions),
		writerNotes:        newWriter(cfg.TopicNotes),
		principal:          cfg.Principal,
		topicTransactions:  cfg.TopicTransactions,
		topicNotes:         cfg.TopicNotes,
		enabled:            true,
		metrics:            m,
	}
}

// Enabled reports whether events leave the process.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// PublishRecord publishes ev to the topic matching its event type, keyed by
// submitter so one submitter's records stay ordered.
func (p *Publisher) PublishRecord(ctx context.Context, ev models.RecordStored) error {
	if ev.EventType == models.EventNoteRecorded {
		return p.publish(ctx, p.writerNotes, p.topicNotes, ev.EventType, ev.SubmitterID, ev)
	}
	return p.publish(ctx, p.writerTransactions, p.topicTransactions, ev.EventType, ev.SubmitterID, ev)
}

func (p *Publisher) publish(ctx context.Context, writer messageWriter, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerTransactions != nil {
		if e := p.writerTransactions.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing transactions writer")
			err = e
		}
	}
	if p.writerNotes != nil {
		if e := p.writerNotes.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing notes writer")
			err = e
		}
	}
	return err
}
