package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voice-ledger-service/internal/models"
)

func TestCreateRootCommand(t *testing.T) {
	cmd := CreateRootCommand(NewFlags())

	if cmd.Use != "voice-ledger" {
		t.Errorf("Use = %q", cmd.Use)
	}
	for _, name := range []string{"serve", "process", "classify", "tail"} {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
	for _, flag := range []string{"config", "contract", "mock"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag %q", flag)
		}
	}
}

func offlineEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STAGING_DIR", t.TempDir())
	t.Setenv("KAFKA_ENABLED", "false")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := CreateRootCommand(NewFlags())
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyCommand_Mock(t *testing.T) {
	offlineEnv(t)

	out, err := execute(t, "classify", "--mock", "recordar", "llamar", "al", "proveedor")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !strings.Contains(out, "raw: NOTA|recordar llamar al proveedor") {
		t.Errorf("output missing raw answer:\n%s", out)
	}
	if !strings.Contains(out, "kind: note") {
		t.Errorf("output missing parsed kind:\n%s", out)
	}
}

func TestClassifyCommand_UnknownContract(t *testing.T) {
	offlineEnv(t)

	if _, err := execute(t, "classify", "--mock", "--contract", "v7", "hola"); err == nil {
		t.Error("expected error for unknown contract")
	}
}

func TestProcessCommand_DryRun(t *testing.T) {
	offlineEnv(t)
	clip := filepath.Join(t.TempDir(), "nota.ogg")
	if err := os.WriteFile(clip, []byte("OggS fake"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "process", "--mock", "--dry-run", clip)
	if err != nil {
		t.Fatalf("process: %v\n%s", err, out)
	}
	for _, want := range []string{"🎧 Escuchando...", "📝 Nota guardada.", "outcome: note_saved"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestProcessCommand_MissingFile(t *testing.T) {
	offlineEnv(t)

	out, err := execute(t, "process", "--mock", "--dry-run", filepath.Join(t.TempDir(), "missing.ogg"))
	if err == nil {
		t.Fatal("expected error for missing clip")
	}
	if !strings.Contains(out, "❌ Error:") {
		t.Errorf("output missing error reply:\n%s", out)
	}
}

func TestFormatEvent(t *testing.T) {
	ev := models.RecordStored{
		EventType:   models.EventNoteRecorded,
		SubmitterID: "42",
		Tab:         "Notas",
		Values:      []string{"2025-01-01 10:00:00", "llamar al proveedor"},
		Timestamp:   time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC).UnixMilli(),
	}
	got := FormatEvent(ev)
	for _, want := range []string{"ledger.note.recorded", "Notas", "42:", "2025-01-01 10:00:00 | llamar al proveedor"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatEvent() = %q, missing %q", got, want)
		}
	}
}
