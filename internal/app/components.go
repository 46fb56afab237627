package app

import (
	"context"
	"fmt"
	"io"

	"voice-ledger-service/internal/config"
	"voice-ledger-service/internal/events"
	"voice-ledger-service/internal/observability/metrics"
	"voice-ledger-service/internal/schema"
	"voice-ledger-service/internal/service/audio"
	"voice-ledger-service/internal/service/classify"
	classifymock "voice-ledger-service/internal/service/classify/mock"
	classifyopenai "voice-ledger-service/internal/service/classify/openai"
	"voice-ledger-service/internal/service/pipeline"
	"voice-ledger-service/internal/service/stt"
	sttgoogle "voice-ledger-service/internal/service/stt/google"
	sttmock "voice-ledger-service/internal/service/stt/mock"
	sttopenai "voice-ledger-service/internal/service/stt/openai"
	"voice-ledger-service/internal/service/taxonomy"
	"voice-ledger-service/internal/storage"
	"voice-ledger-service/internal/storage/memory"
	"voice-ledger-service/internal/storage/sheets"
	"voice-ledger-service/internal/storage/sqlite"
)

// Components is everything a pipeline needs, built from configuration.
type Components struct {
	Contract    schema.Contract
	Taxonomy    *taxonomy.Taxonomy
	Parser      *schema.Parser
	Transcriber stt.Transcriber
	Classifier  classify.Classifier
	Store       *storage.Store
	Publisher   *events.Publisher
	Pipeline    *pipeline.Pipeline

	closers []io.Closer
}

// Close releases provider clients and the store.
func (c *Components) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

// BuildParser returns the contract, taxonomy and parser for cfg.
func BuildParser(cfg *config.Configuration) (schema.Contract, *taxonomy.Taxonomy, *schema.Parser, error) {
	contract, err := schema.ContractFor(schema.Version(cfg.Contract.Version))
	if err != nil {
		return schema.Contract{}, nil, nil, err
	}
	tax := taxonomy.Default()
	return contract, tax, schema.NewParser(contract, tax, nil), nil
}

// BuildClassifier selects the classifier provider.
func BuildClassifier(cfg *config.Configuration, contract schema.Contract) (classify.Classifier, error) {
	switch cfg.Classifier.Provider {
	case "openai":
		return classifyopenai.New(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.ChatModel, cfg.Classifier.Temperature, contract)
	case "mock":
		return classifymock.New(nil), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Classifier.Provider)
	}
}

// BuildTranscriber selects the STT provider. The returned closer may be nil.
func BuildTranscriber(ctx context.Context, cfg *config.Configuration, m *metrics.Metrics) (stt.Transcriber, io.Closer, error) {
	switch cfg.STT.Provider {
	case "openai":
		a, err := sttopenai.New(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.TranscribeModel, m)
		return a, nil, err
	case "google":
		a, err := sttgoogle.New(ctx, sttgoogle.Config{
			LanguageCode:    cfg.Google.STTLanguageCode,
			SampleRateHertz: cfg.Google.STTSampleRateHz,
			Encoding:        cfg.Google.STTEncoding,
			CredentialsJSON: cfg.Google.CredentialsJSON,
			CredentialsFile: cfg.Google.CredentialsFile,
		}, m)
		if err != nil {
			return nil, nil, fmt.Errorf("google stt: %w", err)
		}
		return a, a, nil
	case "mock":
		return sttmock.New(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown STT provider %q", cfg.STT.Provider)
	}
}

// BuildStore selects the storage backend. The label names it in replies.
func BuildStore(cfg *config.Configuration, m *metrics.Metrics) (store *storage.Store, label string, closer io.Closer, err error) {
	var opener storage.Opener
	switch cfg.Store.Backend {
	case "sheets":
		o, err := sheets.NewOpener(sheets.Config{
			SpreadsheetID:   cfg.Store.SpreadsheetID,
			Name:            cfg.Store.SpreadsheetName,
			CredentialsJSON: cfg.Google.CredentialsJSON,
			CredentialsFile: cfg.Google.CredentialsFile,
		})
		if err != nil {
			return nil, "", nil, err
		}
		opener, label = o, "Google Sheets"
	case "sqlite":
		b, err := sqlite.New(cfg.Store.SQLitePath, cfg.Tabs.Notes, cfg.Tabs.Records)
		if err != nil {
			return nil, "", nil, err
		}
		opener, label, closer = b, "SQLite", b
	case "memory":
		opener, label = memory.New(cfg.Tabs.Notes, cfg.Tabs.Records), "el almacenamiento"
	default:
		return nil, "", nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	breaker := storage.BreakerConfig{MaxFailures: cfg.Breaker.MaxFailures, Cooldown: cfg.Breaker.Cooldown}
	return storage.New(cfg.Store.Backend, opener, breaker, m), label, closer, nil
}

// BuildPublisher creates the record event publisher.
func BuildPublisher(cfg *config.Configuration, m *metrics.Metrics) *events.Publisher {
	return events.NewWithMetrics(&events.Config{
		Enabled:           cfg.Kafka.Enabled,
		Brokers:           cfg.Kafka.Brokers,
		TopicTransactions: cfg.Kafka.TopicTransactions,
		TopicNotes:        cfg.Kafka.TopicNotes,
		Principal:         cfg.Kafka.Principal,
	}, m)
}

// BuildComponents wires a complete pipeline from cfg. The caller must Close
// the result.
func BuildComponents(ctx context.Context, cfg *config.Configuration, m *metrics.Metrics) (*Components, error) {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	c := &Components{}

	var err error
	c.Contract, c.Taxonomy, c.Parser, err = BuildParser(cfg)
	if err != nil {
		return nil, err
	}
	if c.Classifier, err = BuildClassifier(cfg, c.Contract); err != nil {
		return nil, err
	}

	transcriber, sttCloser, err := BuildTranscriber(ctx, cfg, m)
	if err != nil {
		return nil, err
	}
	c.Transcriber = transcriber
	if sttCloser != nil {
		c.closers = append(c.closers, sttCloser)
	}

	store, label, storeCloser, err := BuildStore(cfg, m)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Store = store
	if storeCloser != nil {
		c.closers = append(c.closers, storeCloser)
	}

	c.Publisher = BuildPublisher(cfg, m)
	c.closers = append(c.closers, c.Publisher)

	c.Pipeline, err = pipeline.New(pipeline.Deps{
		Stager:      audio.NewStager(cfg.Staging.Dir, audio.Limits{MaxAudioBytes: cfg.Staging.MaxAudioBytes}, m),
		Transcriber: c.Transcriber,
		Classifier:  c.Classifier,
		Taxonomy:    c.Taxonomy,
		Parser:      c.Parser,
		Store:       c.Store,
		Publisher:   c.Publisher,
		Metrics:     m,
	}, pipeline.Config{
		Tabs:               pipeline.Tabs{Notes: cfg.Tabs.Notes, Records: cfg.Tabs.Records},
		Location:           cfg.Location(),
		MinTranscriptChars: cfg.Pipeline.MinTranscriptChars,
		StageTimeout:       cfg.Pipeline.StageTimeout,
		LanguageHint:       cfg.STT.Language,
		StorageLabel:       label,
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}
