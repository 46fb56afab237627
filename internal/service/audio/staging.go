// Package audio stages voice clips on local disk for the duration of a
// single pipeline run.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"voice-ledger-service/internal/observability/metrics"
)

// Extension is appended to every staged clip. Telegram and Discord voice
// notes are Ogg/Opus.
const Extension = ".ogg"

var (
	// ErrLimitExceeded is returned when a clip is larger than the configured limit.
	ErrLimitExceeded = errors.New("audio: clip exceeds size limit")

	// ErrEmptyClip is returned when the source produced no bytes.
	ErrEmptyClip = errors.New("audio: empty clip")
)

// Limits defines safety guardrails for staged clips.
type Limits struct {
	MaxAudioBytes int64 // Max bytes per clip, 0 disables the check
}

// DefaultLimits returns sensible default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxAudioBytes: 20 * 1024 * 1024, // Telegram bot file download cap
	}
}

// Source writes the bytes of a voice attachment into w.
type Source interface {
	Fetch(ctx context.Context, w io.Writer) error
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, w io.Writer) error

// Fetch calls f(ctx, w).
func (f SourceFunc) Fetch(ctx context.Context, w io.Writer) error {
	return f(ctx, w)
}

// Stager writes clips into a staging directory, one file per run.
type Stager struct {
	dir     string
	limits  Limits
	metrics *metrics.Metrics
}

// NewStager creates a stager rooted at dir. An empty dir uses os.TempDir().
func NewStager(dir string, limits Limits, m *metrics.Metrics) *Stager {
	if dir == "" {
		dir = os.TempDir()
	}
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Stager{dir: dir, limits: limits, metrics: m}
}

// Dir returns the staging directory.
func (s *Stager) Dir() string {
	return s.dir
}

// Stage fetches src into a file named after runID. On error nothing is left
// behind on disk. The caller must Release the returned clip.
func (s *Stager) Stage(ctx context.Context, runID string, src Source) (*Staged, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("audio: create staging dir: %w", err)
	}

	path := filepath.Join(s.dir, filepath.Base(runID)+Extension)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audio: create staged file: %w", err)
	}

	lw := &limitedWriter{w: f, max: s.limits.MaxAudioBytes}
	fetchErr := src.Fetch(ctx, lw)
	closeErr := f.Close()

	if fetchErr == nil && lw.exceeded {
		fetchErr = ErrLimitExceeded
	}
	if fetchErr == nil {
		fetchErr = closeErr
	}
	if fetchErr == nil && lw.n == 0 {
		fetchErr = ErrEmptyClip
	}
	if fetchErr != nil {
		if errors.Is(fetchErr, ErrLimitExceeded) {
			s.metrics.RecordLimitExceeded()
		}
		_ = os.Remove(path)
		return nil, fetchErr
	}

	s.metrics.RecordAudioStaged(lw.n)
	log.Debug().
		Str("runId", runID).
		Str("path", path).
		Int64("bytes", lw.n).
		Msg("Audio staged")

	return &Staged{path: path, size: lw.n}, nil
}

// Staged is a clip written to local disk for one run.
type Staged struct {
	path string
	size int64

	once     sync.Once
	mu       sync.Mutex
	released bool
}

// Path returns the location of the staged file.
func (s *Staged) Path() string {
	return s.path
}

// Size returns the number of bytes staged.
func (s *Staged) Size() int64 {
	return s.size
}

// Release removes the staged file. Safe to call more than once; only the
// first call touches the filesystem.
func (s *Staged) Release() error {
	var err error
	s.once.Do(func() {
		if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = fmt.Errorf("audio: release %s: %w", s.path, rmErr)
		}
		s.mu.Lock()
		s.released = true
		s.mu.Unlock()
	})
	return err
}

// Released reports whether Release has been called.
func (s *Staged) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

type limitedWriter struct {
	w        io.Writer
	max      int64
	n        int64
	exceeded bool
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if l.max > 0 && l.n+int64(len(p)) > l.max {
		l.exceeded = true
		return 0, ErrLimitExceeded
	}
	n, err := l.w.Write(p)
	l.n += int64(n)
	return n, err
}
