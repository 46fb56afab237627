package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"

	"voice-ledger-service/internal/models"
	"voice-ledger-service/internal/observability/metrics"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func enabledPublisher(tx, notes *fakeWriter) *Publisher {
	return &Publisher{
		writerTransactions: tx,
		writerNotes:        notes,
		principal:          "voice-ledger",
		topicTransactions:  "ledger.transactions",
		topicNotes:         "ledger.notes",
		enabled:            true,
		metrics:            metrics.NewMetrics(prometheus.NewRegistry()),
	}
}

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil", nil},
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"empty brokers", &Config{Enabled: true, Brokers: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewWithMetrics(tt.cfg, metrics.NewMetrics(prometheus.NewRegistry()))
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.Enabled() {
				t.Error("expected publisher to be disabled")
			}
			if p.writerTransactions != nil || p.writerNotes != nil {
				t.Error("expected nil writers when disabled")
			}
		})
	}
}

func TestNew_ConfigValues(t *testing.T) {
	p := NewWithMetrics(&Config{
		Enabled:           false,
		Brokers:           []string{"localhost:9092"},
		TopicTransactions: "test.transactions",
		TopicNotes:        "test.notes",
		Principal:         "test-principal",
	}, metrics.NewMetrics(prometheus.NewRegistry()))

	if p.principal != "test-principal" {
		t.Errorf("expected principal 'test-principal', got %s", p.principal)
	}
	if p.topicTransactions != "test.transactions" {
		t.Errorf("expected topic 'test.transactions', got %s", p.topicTransactions)
	}
	if p.topicNotes != "test.notes" {
		t.Errorf("expected topic 'test.notes', got %s", p.topicNotes)
	}
}

func TestNew_EnabledCreatesWriters(t *testing.T) {
	p := NewWithMetrics(&Config{
		Enabled:           true,
		Brokers:           []string{"localhost:9092"},
		TopicTransactions: "t",
		TopicNotes:        "n",
	}, metrics.NewMetrics(prometheus.NewRegistry()))
	defer p.Close()

	if !p.Enabled() {
		t.Fatal("expected enabled publisher")
	}
	if p.writerTransactions == nil || p.writerNotes == nil {
		t.Error("expected both writers")
	}
}

func TestPublishRecord_Disabled(t *testing.T) {
	p := NewWithMetrics(&Config{Enabled: false}, metrics.NewMetrics(prometheus.NewRegistry()))

	err := p.PublishRecord(context.Background(), models.RecordStored{EventType: models.EventNoteRecorded})
	if err != nil {
		t.Errorf("expected no error in disabled mode, got %v", err)
	}
}

func TestPublishRecord_RoutesByType(t *testing.T) {
	tx, notes := &fakeWriter{}, &fakeWriter{}
	p := enabledPublisher(tx, notes)
	ctx := context.Background()

	txEv := models.RecordStored{
		EventType:   models.EventTransactionRecorded,
		RunID:       "42-run-1-abc",
		SubmitterID: "42",
		Tab:         "Registros",
		Values:      []string{"2026-01-01 10:00:00", "gasto"},
	}
	if err := p.PublishRecord(ctx, txEv); err != nil {
		t.Fatalf("publish transaction: %v", err)
	}
	if err := p.PublishRecord(ctx, models.RecordStored{EventType: models.EventNoteRecorded, SubmitterID: "42"}); err != nil {
		t.Fatalf("publish note: %v", err)
	}

	if len(tx.msgs) != 1 || len(notes.msgs) != 1 {
		t.Fatalf("tx=%d notes=%d, want 1 and 1", len(tx.msgs), len(notes.msgs))
	}

	msg := tx.msgs[0]
	if string(msg.Key) != "42" {
		t.Errorf("key = %q, want 42", msg.Key)
	}
	var decoded models.RecordStored
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.RunID != txEv.RunID || decoded.Tab != "Registros" {
		t.Errorf("decoded = %+v", decoded)
	}

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["eventType"] != models.EventTransactionRecorded {
		t.Errorf("eventType header = %q", headers["eventType"])
	}
	if headers["principal"] != "voice-ledger" {
		t.Errorf("principal header = %q", headers["principal"])
	}
}

func TestPublishRecord_WriteError(t *testing.T) {
	tx := &fakeWriter{err: errors.New("broker down")}
	p := enabledPublisher(tx, &fakeWriter{})

	if err := p.PublishRecord(context.Background(), models.RecordStored{EventType: models.EventTransactionRecorded}); err == nil {
		t.Error("expected write error")
	}
}

func TestPublisher_Close(t *testing.T) {
	tx, notes := &fakeWriter{}, &fakeWriter{}
	p := enabledPublisher(tx, notes)

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if !tx.closed || !notes.closed {
		t.Error("expected both writers closed")
	}

	disabled := NewWithMetrics(nil, metrics.NewMetrics(prometheus.NewRegistry()))
	if err := disabled.Close(); err != nil {
		t.Errorf("closing disabled publisher: %v", err)
	}
}
