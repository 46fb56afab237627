package run

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator issues run identifiers that are unique per process and per event,
// so two voice messages from the same submitter never share a staging name.
type Generator struct {
	counter uint64
}

// NewGenerator creates a generator starting at 1.
func NewGenerator() *Generator {
	return &Generator{}
}

// Next returns "<submitter>-run-<n>-<random>".
func (g *Generator) Next(submitterID string) string {
	n := atomic.AddUint64(&g.counter, 1)
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s-run-%d-%s", sanitize(submitterID), n, token)
}

// sanitize keeps identifiers safe for use in file names.
func sanitize(id string) string {
	if id == "" {
		return "anon"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id)
}
