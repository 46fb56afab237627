package google

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"voice-ledger-service/internal/observability/metrics"
)

type fakeRecognizer struct {
	req  *speechpb.RecognizeRequest
	resp *speechpb.RecognizeResponse
	err  error
}

func (f *fakeRecognizer) Recognize(_ context.Context, req *speechpb.RecognizeRequest, _ ...gax.CallOption) (*speechpb.RecognizeResponse, error) {
	f.req = req
	return f.resp, f.err
}

func (f *fakeRecognizer) Close() error { return nil }

func writeClip(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "clip.ogg")
	if err := os.WriteFile(p, []byte("OggS"), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestTranscribe_JoinsResults(t *testing.T) {
	fake := &fakeRecognizer{resp: &speechpb.RecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "gasté ochenta mil "}}},
			{Alternatives: nil},
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "en almuerzo"}}},
		},
	}}
	a := newWithClient(fake, Config{}, metrics.NewMetrics(prometheus.NewRegistry()))

	text, err := a.Transcribe(context.Background(), writeClip(t), "es")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "gasté ochenta mil en almuerzo" {
		t.Errorf("text = %q", text)
	}

	cfg := fake.req.GetConfig()
	if cfg.GetEncoding() != speechpb.RecognitionConfig_OGG_OPUS {
		t.Errorf("encoding = %v", cfg.GetEncoding())
	}
	if cfg.GetSampleRateHertz() != 48000 {
		t.Errorf("sample rate = %d", cfg.GetSampleRateHertz())
	}
	if cfg.GetLanguageCode() != "es-CO" {
		t.Errorf("language = %q", cfg.GetLanguageCode())
	}
	if string(fake.req.GetAudio().GetContent()) != "OggS" {
		t.Error("audio content not forwarded")
	}
}

func TestTranscribe_EmptyResponse(t *testing.T) {
	a := newWithClient(&fakeRecognizer{resp: &speechpb.RecognizeResponse{}}, Config{}, metrics.NewMetrics(prometheus.NewRegistry()))

	text, err := a.Transcribe(context.Background(), writeClip(t), "es")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
}

func TestTranscribe_ErrorRecordsCode(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	fake := &fakeRecognizer{err: status.Error(codes.InvalidArgument, "bad encoding")}
	a := newWithClient(fake, Config{}, m)

	if _, err := a.Transcribe(context.Background(), writeClip(t), "es"); err == nil {
		t.Fatal("expected error")
	}
	if got := testCounter(t, m, "google", "InvalidArgument"); got != 1 {
		t.Errorf("stt error counter = %v, want 1", got)
	}
}

func TestParseAudioEncoding(t *testing.T) {
	tests := []struct {
		in   string
		want speechpb.RecognitionConfig_AudioEncoding
	}{
		{"OGG_OPUS", speechpb.RecognitionConfig_OGG_OPUS},
		{"linear16", speechpb.RecognitionConfig_LINEAR16},
		{"FLAC", speechpb.RecognitionConfig_FLAC},
		{"bogus", speechpb.RecognitionConfig_OGG_OPUS},
	}
	for _, tt := range tests {
		if got := parseAudioEncoding(tt.in); got != tt.want {
			t.Errorf("parseAudioEncoding(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLanguageCode(t *testing.T) {
	a := newWithClient(&fakeRecognizer{}, Config{LanguageCode: "es-CO"}, metrics.NewMetrics(prometheus.NewRegistry()))

	if got := a.languageCode("es"); got != "es-CO" {
		t.Errorf("languageCode(es) = %q", got)
	}
	if got := a.languageCode(""); got != "es-CO" {
		t.Errorf("languageCode('') = %q", got)
	}
	if got := a.languageCode("en-US"); got != "en-US" {
		t.Errorf("languageCode(en-US) = %q", got)
	}
}
