// Package storage appends rows to a tabular book (a spreadsheet with named
// tabs), falling back to the first tab when the requested one is missing.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"voice-ledger-service/internal/observability/logging"
	"voice-ledger-service/internal/observability/metrics"
)

var (
	// ErrNoTabs is returned when the book has no tabs at all.
	ErrNoTabs = errors.New("storage: book has no tabs")

	// ErrBreakerOpen is returned while the circuit breaker rejects calls.
	ErrBreakerOpen = errors.New("storage: circuit breaker open")
)

// Book is an opened tabular document.
type Book interface {
	// Tabs returns tab titles in document order.
	Tabs(ctx context.Context) ([]string, error)
	// AppendRow appends one row at the end of tab.
	AppendRow(ctx context.Context, tab string, values []string) error
}

// Opener acquires a connection to the book.
type Opener interface {
	Open(ctx context.Context) (Book, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context) (Book, error)

// Open calls f(ctx).
func (f OpenerFunc) Open(ctx context.Context) (Book, error) { return f(ctx) }

// Appender is what the pipeline needs from a store.
type Appender interface {
	Append(ctx context.Context, tab string, row []string) bool
}

// BreakerConfig controls the circuit breaker around the backend.
type BreakerConfig struct {
	MaxFailures uint32        // consecutive failures before opening
	Cooldown    time.Duration // time spent open before a trial call
}

// DefaultBreakerConfig returns sensible breaker defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures: 5,
		Cooldown:    30 * time.Second,
	}
}

// Store is the persistence adapter. It is safe for concurrent use.
type Store struct {
	name    string
	opener  Opener
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New creates a store named after its backend.
func New(name string, opener Opener, cfg BreakerConfig, m *metrics.Metrics) *Store {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = DefaultBreakerConfig().MaxFailures
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultBreakerConfig().Cooldown
	}

	s := &Store{
		name:    name,
		opener:  opener,
		metrics: m,
		log:     logging.WithProvider("storage", name),
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "storage-" + name,
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(breaker string, from, to gobreaker.State) {
			m.SetBreakerState(breaker, int(to))
			s.log.Warn().
				Str("breaker", breaker).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Storage breaker state changed")
		},
	})
	m.SetBreakerState("storage-"+name, int(gobreaker.StateClosed))
	return s
}

// Name returns the backend name.
func (s *Store) Name() string { return s.name }

// Append writes row to tab, or to the first tab when tab does not exist.
// Every failure is logged and reported as false; no error escapes.
func (s *Store) Append(ctx context.Context, tab string, row []string) bool {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.append(ctx, tab, row)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %w", ErrBreakerOpen, err)
	}

	ok := err == nil
	s.metrics.RecordAppend(tab, ok)
	if !ok {
		s.log.Error().Err(err).Str("tab", tab).Int("fields", len(row)).Msg("Append failed")
	}
	return ok
}

func (s *Store) append(ctx context.Context, tab string, row []string) error {
	book, err := s.opener.Open(ctx)
	if err != nil {
		return fmt.Errorf("storage: open book: %w", err)
	}

	tabs, err := book.Tabs(ctx)
	if err != nil {
		return fmt.Errorf("storage: list tabs: %w", err)
	}

	target, fellBack, err := SelectTab(tabs, tab)
	if err != nil {
		return err
	}
	if fellBack {
		s.metrics.RecordTabFallback(tab)
		s.log.Warn().Str("requested", tab).Str("using", target).Msg("Tab not found, using first tab")
	}

	if err := book.AppendRow(ctx, target, row); err != nil {
		return fmt.Errorf("storage: append to %q: %w", target, err)
	}
	return nil
}

// SelectTab returns the tab whose title equals requested exactly, or the
// first tab in document order with fellBack set.
func SelectTab(tabs []string, requested string) (target string, fellBack bool, err error) {
	if len(tabs) == 0 {
		return "", false, ErrNoTabs
	}
	for _, t := range tabs {
		if t == requested {
			return t, false, nil
		}
	}
	return tabs[0], true, nil
}
