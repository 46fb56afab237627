// Package memory provides an in-process book for dry runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"voice-ledger-service/internal/storage"
)

// Book keeps tabs and rows in memory. It implements both storage.Opener and
// storage.Book.
type Book struct {
	mu   sync.Mutex
	tabs []string
	rows map[string][][]string

	// OpenErr and AppendErr inject failures.
	OpenErr   error
	AppendErr error

	opens int
}

// New creates a book with the given tabs in document order.
func New(tabs ...string) *Book {
	b := &Book{rows: make(map[string][][]string)}
	for _, t := range tabs {
		b.tabs = append(b.tabs, t)
		b.rows[t] = nil
	}
	return b
}

// Open implements storage.Opener.
func (b *Book) Open(_ context.Context) (storage.Book, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opens++
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	return b, nil
}

// Tabs implements storage.Book.
func (b *Book) Tabs(_ context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.tabs...), nil
}

// AppendRow implements storage.Book.
func (b *Book) AppendRow(_ context.Context, tab string, values []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.AppendErr != nil {
		return b.AppendErr
	}
	if _, ok := b.rows[tab]; !ok {
		return fmt.Errorf("memory: no tab %q", tab)
	}
	b.rows[tab] = append(b.rows[tab], append([]string(nil), values...))
	return nil
}

// Rows returns a copy of the rows stored in tab.
func (b *Book) Rows(tab string) [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]string, 0, len(b.rows[tab]))
	for _, r := range b.rows[tab] {
		out = append(out, append([]string(nil), r...))
	}
	return out
}

// Opens returns how many times the book was opened.
func (b *Book) Opens() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opens
}

// SetFailures replaces the injected errors.
func (b *Book) SetFailures(openErr, appendErr error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.OpenErr = openErr
	b.AppendErr = appendErr
}
