// Package google provides a Google Cloud Speech-to-Text adapter.
package google

import (
	"context"
	"fmt"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"voice-ledger-service/internal/observability/logging"
	"voice-ledger-service/internal/observability/metrics"
	"voice-ledger-service/internal/service/stt"
)

// Config holds recognition settings.
type Config struct {
	LanguageCode    string // BCP-47, e.g. "es-CO"
	SampleRateHertz int32
	Encoding        string // OGG_OPUS, LINEAR16, FLAC...
	CredentialsJSON string
	CredentialsFile string
}

// DefaultConfig returns settings for Telegram/Discord voice notes.
func DefaultConfig() Config {
	return Config{
		LanguageCode:    "es-CO",
		SampleRateHertz: 48000,
		Encoding:        "OGG_OPUS",
	}
}

// recognizer is the subset of *speech.Client used by the adapter.
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

// Adapter implements stt.Transcriber using Google Cloud Speech-to-Text.
type Adapter struct {
	client  recognizer
	cfg     Config
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New creates a new Google STT adapter. Without explicit credentials the
// client falls back to GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, cfg Config, m *metrics.Metrics) (*Adapter, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		if _, err := os.Stat(cfg.CredentialsFile); err == nil {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
	}

	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return newWithClient(c, cfg, m), nil
}

func newWithClient(c recognizer, cfg Config, m *metrics.Metrics) *Adapter {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	def := DefaultConfig()
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = def.LanguageCode
	}
	if cfg.SampleRateHertz <= 0 {
		cfg.SampleRateHertz = def.SampleRateHertz
	}
	if cfg.Encoding == "" {
		cfg.Encoding = def.Encoding
	}
	return &Adapter{
		client:  c,
		cfg:     cfg,
		metrics: m,
		log:     logging.WithProvider("stt", "google"),
	}
}

// Name implements stt.Transcriber.
func (a *Adapter) Name() string { return "google" }

// Transcribe implements stt.Transcriber with a single batch Recognize call.
func (a *Adapter) Transcribe(ctx context.Context, path string, languageHint string) (string, error) {
	audio, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("google stt: read clip: %w", err)
	}

	resp, err := a.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        parseAudioEncoding(a.cfg.Encoding),
			SampleRateHertz: a.cfg.SampleRateHertz,
			LanguageCode:    a.languageCode(languageHint),
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		a.metrics.RecordSTTError(a.Name(), errorCode(err))
		return "", fmt.Errorf("google stt: recognize: %w", err)
	}

	var parts []string
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		parts = append(parts, strings.TrimSpace(alts[0].GetTranscript()))
	}

	text := strings.Join(parts, " ")
	a.log.Debug().Int("results", len(parts)).Int("chars", len(text)).Msg("Recognition completed")
	return text, nil
}

// Close releases the underlying gRPC connection.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// languageCode prefers the configured regional code when it matches the hint.
func (a *Adapter) languageCode(hint string) string {
	if hint == "" || strings.HasPrefix(strings.ToLower(a.cfg.LanguageCode), strings.ToLower(hint)) {
		return a.cfg.LanguageCode
	}
	return hint
}

func parseAudioEncoding(s string) speechpb.RecognitionConfig_AudioEncoding {
	if v, ok := speechpb.RecognitionConfig_AudioEncoding_value[strings.ToUpper(s)]; ok {
		return speechpb.RecognitionConfig_AudioEncoding(v)
	}
	return speechpb.RecognitionConfig_OGG_OPUS
}

func errorCode(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return codes.Unknown.String()
	}
	return st.Code().String()
}

var _ stt.Transcriber = (*Adapter)(nil)
