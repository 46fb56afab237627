package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInitWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(Config{Level: "debug", Format: "json"}, &buf)
	defer Init(DefaultConfig())

	l := WithRun("u1-run-1-abc", "u1")
	l.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["runId"] != "u1-run-1-abc" {
		t.Errorf("runId = %v", entry["runId"])
	}
	if entry["submitterId"] != "u1" {
		t.Errorf("submitterId = %v", entry["submitterId"])
	}
	if entry["message"] != "hello" {
		t.Errorf("message = %v", entry["message"])
	}
}

func TestInitWriter_InvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(Config{Level: "chatty", Format: "json"}, &buf)
	defer Init(DefaultConfig())

	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("global level = %v, want info", zerolog.GlobalLevel())
	}

	log.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug output emitted at info level: %s", buf.String())
	}
}

func TestWithStage(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(Config{Level: "info", Format: "json"}, &buf)
	defer Init(DefaultConfig())

	l := WithStage("r", "s", "transcribe")
	l.Warn().Msg("slow")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["stage"] != "transcribe" {
		t.Errorf("stage = %v", entry["stage"])
	}
}
