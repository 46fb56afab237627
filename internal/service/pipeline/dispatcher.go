package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"voice-ledger-service/internal/models"
	"voice-ledger-service/internal/observability/logging"
)

// DefaultMaxConcurrentRuns bounds in-flight runs when no limit is configured.
const DefaultMaxConcurrentRuns = 8

// ErrDispatcherClosed is returned by Dispatch after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Runner executes a single event.
type Runner interface {
	Run(ctx context.Context, ev models.VoiceEvent, r Replier) Outcome
}

// Dispatcher runs events concurrently, at most max at a time.
type Dispatcher struct {
	runner Runner
	sem    *semaphore.Weighted
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool

	inflight atomic.Int64
	peak     atomic.Int64

	log zerolog.Logger
}

// NewDispatcher creates a dispatcher; max <= 0 uses DefaultMaxConcurrentRuns.
func NewDispatcher(r Runner, max int) *Dispatcher {
	if max <= 0 {
		max = DefaultMaxConcurrentRuns
	}
	return &Dispatcher{
		runner: r,
		sem:    semaphore.NewWeighted(int64(max)),
		log:    logging.WithComponent("dispatcher"),
	}
}

// Dispatch blocks until a slot is free, then runs ev in its own goroutine.
// The run is detached from ctx cancellation so an accepted event always gets
// its reply; ctx only bounds the wait for a slot.
func (d *Dispatcher) Dispatch(ctx context.Context, ev models.VoiceEvent, r Replier) error {
	if d.isClosed() {
		return ErrDispatcherClosed
	}
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	// Add must not race with Wait once Close has been called.
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.sem.Release(1)
		return ErrDispatcherClosed
	}
	d.wg.Add(1)
	d.mu.Unlock()

	n := d.inflight.Add(1)
	for {
		peak := d.peak.Load()
		if n <= peak || d.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			d.inflight.Add(-1)
			d.sem.Release(1)
			d.wg.Done()
			if rec := recover(); rec != nil {
				d.log.Error().Interface("panic", rec).Str("submitterId", ev.SubmitterID).Msg("Run panicked")
			}
		}()
		d.runner.Run(runCtx, ev, r)
	}()
	return nil
}

// Close stops accepting new events. Dispatch calls that return nil before
// Close returns are covered by a later Wait.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

func (d *Dispatcher) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Wait blocks until all accepted runs have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// InFlight returns the number of runs in progress.
func (d *Dispatcher) InFlight() int64 {
	return d.inflight.Load()
}

// Peak returns the highest number of concurrent runs observed.
func (d *Dispatcher) Peak() int64 {
	return d.peak.Load()
}
