package mock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAdapter_CyclesUtterances(t *testing.T) {
	a := New("uno", "dos")
	ctx := context.Background()

	want := []string{"uno", "dos", "uno"}
	for i, w := range want {
		got, err := a.Transcribe(ctx, "clip.ogg", "es")
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if got != w {
			t.Errorf("call %d = %q, want %q", i, got, w)
		}
	}
	if len(a.Calls()) != 3 {
		t.Errorf("calls = %d, want 3", len(a.Calls()))
	}
}

func TestAdapter_Defaults(t *testing.T) {
	a := New()
	got, _ := a.Transcribe(context.Background(), "clip.ogg", "es")
	if got != DefaultUtterances[0] {
		t.Errorf("got %q", got)
	}
}

func TestAdapter_Error(t *testing.T) {
	a := New()
	a.Err = errors.New("quota exceeded")

	if _, err := a.Transcribe(context.Background(), "clip.ogg", "es"); !errors.Is(err, a.Err) {
		t.Errorf("expected configured error, got %v", err)
	}
}

func TestAdapter_DelayRespectsContext(t *testing.T) {
	a := New()
	a.Delay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := a.Transcribe(ctx, "clip.ogg", "es"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
