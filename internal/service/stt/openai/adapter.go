// Package openai provides a Whisper speech-to-text adapter backed by the
// OpenAI audio transcription API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"voice-ledger-service/internal/observability/logging"
	"voice-ledger-service/internal/observability/metrics"
)

// DefaultModel is the transcription model used when none is configured.
const DefaultModel = "whisper-1"

// Adapter implements stt.Transcriber using OpenAI audio transcriptions.
type Adapter struct {
	client  oai.Client
	model   string
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New creates a Whisper adapter. baseURL may be empty.
func New(apiKey, baseURL, model string, m *metrics.Metrics) (*Adapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai stt: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}
	if m == nil {
		m = metrics.DefaultMetrics
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Adapter{
		client:  oai.NewClient(opts...),
		model:   model,
		metrics: m,
		log:     logging.WithProvider("stt", "openai"),
	}, nil
}

// Name implements stt.Transcriber.
func (a *Adapter) Name() string { return "openai" }

// Transcribe implements stt.Transcriber.
func (a *Adapter) Transcribe(ctx context.Context, path string, languageHint string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("openai stt: open clip: %w", err)
	}
	defer f.Close()

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(f, filepath.Base(path), "audio/ogg"),
		Model: oai.AudioModel(a.model),
	}
	if hint := shortLanguage(languageHint); hint != "" {
		params.Language = oai.String(hint)
	}

	resp, err := a.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		a.metrics.RecordSTTError(a.Name(), errorType(ctx, err))
		return "", fmt.Errorf("openai stt: transcribe: %w", err)
	}

	a.log.Debug().Int("chars", len(resp.Text)).Msg("Transcription received")
	return resp.Text, nil
}

// shortLanguage reduces a BCP-47 tag ("es-CO") to the ISO-639-1 code Whisper
// expects ("es").
func shortLanguage(tag string) string {
	tag = strings.TrimSpace(strings.ToLower(tag))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return tag
}

func errorType(ctx context.Context, err error) string {
	if ctx.Err() != nil {
		return "deadline"
	}
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("http_%d", apiErr.StatusCode)
	}
	return "transport"
}
