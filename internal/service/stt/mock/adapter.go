// Package mock provides a mock STT adapter for running the pipeline without
// provider credentials. It answers with scripted Spanish utterances in order,
// cycling when the script is exhausted.
package mock

import (
	"context"
	"sync"
	"time"

	"voice-ledger-service/internal/service/stt"
)

// DefaultUtterances provides sample utterances for local runs.
var DefaultUtterances = []string{
	"gasté doscientos ochenta mil en madera para la fábrica, factura tres uno cinco siete",
	"recuérdame llamar al proveedor de espumas el lunes",
	"vendí una base cama en ochocientos mil",
	"pagué el almuerzo de la casa veinticinco mil",
	"pagamos los sueldos de la semana un millón doscientos",
}

// Adapter implements stt.Transcriber with scripted responses.
type Adapter struct {
	mu         sync.Mutex
	utterances []string
	next       int
	calls      []string

	// Err, when set, is returned by every call instead of a transcript.
	Err error
	// Delay simulates provider latency; the context deadline still applies.
	Delay time.Duration
}

// New creates a mock adapter. With no utterances DefaultUtterances is used.
func New(utterances ...string) *Adapter {
	if len(utterances) == 0 {
		utterances = DefaultUtterances
	}
	return &Adapter{utterances: append([]string(nil), utterances...)}
}

// Name implements stt.Transcriber.
func (a *Adapter) Name() string { return "mock" }

// Transcribe implements stt.Transcriber.
func (a *Adapter) Transcribe(ctx context.Context, path string, _ string) (string, error) {
	a.mu.Lock()
	a.calls = append(a.calls, path)
	err := a.Err
	delay := a.Delay
	text := a.utterances[a.next%len(a.utterances)]
	a.next++
	a.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

// Calls returns the clip paths passed to Transcribe, in order.
func (a *Adapter) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

var _ stt.Transcriber = (*Adapter)(nil)
