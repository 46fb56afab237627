// Package stt defines the interface for Speech-to-Text adapters.
package stt

import "context"

// Transcriber converts one staged voice clip to text.
//
// Implementations make exactly one provider call per invocation and must be
// safe for concurrent use by independent runs.
type Transcriber interface {
	// Transcribe returns the recognized text of the clip at path. languageHint
	// is a short language tag ("es"); adapters may map it to their own format.
	Transcribe(ctx context.Context, path string, languageHint string) (string, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}
