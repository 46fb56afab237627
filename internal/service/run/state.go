// Package run provides run identifiers and the per-event pipeline state machine.
package run

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the stage a pipeline run is in.
type State int

const (
	StateIdle State = iota
	StateAcquiring
	StateTranscribing
	StateClassifying
	StateParsing
	StatePersisting
	// StateResponding is reached from every stage, on success or failure.
	StateResponding
	StateDone
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAcquiring:
		return "ACQUIRING"
	case StateTranscribing:
		return "TRANSCRIBING"
	case StateClassifying:
		return "CLASSIFYING"
	case StateParsing:
		return "PARSING"
	case StatePersisting:
		return "PERSISTING"
	case StateResponding:
		return "RESPONDING"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Stage returns the lower-case stage name used in logs and metric labels.
func (s State) Stage() string {
	switch s {
	case StateAcquiring:
		return "acquire"
	case StateTranscribing:
		return "transcribe"
	case StateClassifying:
		return "classify"
	case StateParsing:
		return "parse"
	case StatePersisting:
		return "persist"
	case StateResponding:
		return "respond"
	default:
		return "none"
	}
}

// IsTerminal returns true once the run is done.
func (s State) IsTerminal() bool {
	return s == StateDone
}

// Errors for invalid state transitions.
var (
	ErrRunDone           = errors.New("run is done")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Lifecycle enforces the order of stages within one run.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	IDLE → ACQUIRING → TRANSCRIBING → CLASSIFYING → PARSING → PERSISTING → RESPONDING → DONE
//	            │             │              │           │          │
//	            └─────────────┴──────────────┴───────────┴──────────┴──→ RESPONDING (failure)
//
// Stages only move forward, one step at a time. Fail jumps straight to
// RESPONDING and remembers the stage that failed.
type Lifecycle struct {
	mu       sync.RWMutex
	runID    string
	state    State
	failedAt State
	failed   bool
}

// NewLifecycle creates a lifecycle in IDLE state.
func NewLifecycle(runID string) *Lifecycle {
	return &Lifecycle{runID: runID, state: StateIdle}
}

// RunID returns the run identifier.
func (l *Lifecycle) RunID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.runID
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Failed reports whether the run failed, and at which stage.
func (l *Lifecycle) Failed() (State, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.failedAt, l.failed
}

// Advance moves to the next state. The target must be exactly one step ahead.
func (l *Lifecycle) Advance(to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.IsTerminal() {
		return ErrRunDone
	}
	if to != l.state+1 {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, l.state, to)
	}
	l.state = to
	return nil
}

// Fail records a failure in the current stage and jumps to RESPONDING.
// Failing outside a working stage is an error.
func (l *Lifecycle) Fail() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateAcquiring, StateTranscribing, StateClassifying, StateParsing, StatePersisting:
		l.failedAt = l.state
		l.failed = true
		l.state = StateResponding
		return nil
	case StateDone:
		return ErrRunDone
	default:
		return fmt.Errorf("%w: cannot fail from %s", ErrInvalidTransition, l.state)
	}
}

// Finish moves a RESPONDING run to DONE. Idempotent once done.
func (l *Lifecycle) Finish() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateResponding:
		l.state = StateDone
		return nil
	case StateDone:
		return nil
	default:
		return fmt.Errorf("%w: cannot finish from %s", ErrInvalidTransition, l.state)
	}
}
