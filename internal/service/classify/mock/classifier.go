// Package mock provides a canned classifier for local runs and tests.
package mock

import (
	"context"
	"sync"

	"voice-ledger-service/internal/service/classify"
	"voice-ledger-service/internal/service/taxonomy"
)

// Classifier returns canned answers keyed by transcript.
type Classifier struct {
	mu        sync.Mutex
	responses map[string]string
	calls     []string

	// Default is returned for transcripts without a canned answer.
	Default string
	// Err, when set, is returned by every call.
	Err error
}

// New creates a mock classifier. A transcript missing from responses gets
// Default, which starts as a note holding the transcript itself.
func New(responses map[string]string) *Classifier {
	r := make(map[string]string, len(responses))
	for k, v := range responses {
		r[k] = v
	}
	return &Classifier{responses: r}
}

// Name implements classify.Classifier.
func (c *Classifier) Name() string { return "mock" }

// Classify implements classify.Classifier.
func (c *Classifier) Classify(ctx context.Context, transcript string, _ *taxonomy.Taxonomy) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, transcript)
	resp, ok := c.responses[transcript]
	def := c.Default
	err := c.Err
	c.mu.Unlock()

	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !ok {
		if def == "" {
			return classify.Clean("NOTA|" + transcript), nil
		}
		resp = def
	}
	return classify.Clean(resp), nil
}

// Calls returns the transcripts passed to Classify, in order.
func (c *Classifier) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

var _ classify.Classifier = (*Classifier)(nil)
