package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// URLSource downloads a clip with an HTTP GET.
type URLSource struct {
	URL    string
	Client *http.Client
}

// Fetch implements Source.
func (u URLSource) Fetch(ctx context.Context, w io.Writer) error {
	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.URL, nil)
	if err != nil {
		return fmt.Errorf("audio: build download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("audio: download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("audio: download: unexpected status %s", resp.Status)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

// FileSource copies a clip from a local file.
type FileSource struct {
	Path string
}

// Fetch implements Source.
func (f FileSource) Fetch(_ context.Context, w io.Writer) error {
	in, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("audio: open %s: %w", f.Path, err)
	}
	defer in.Close()
	_, err = io.Copy(w, in)
	return err
}

// BytesSource serves an in-memory clip.
type BytesSource []byte

// Fetch implements Source.
func (b BytesSource) Fetch(_ context.Context, w io.Writer) error {
	_, err := io.Copy(w, bytes.NewReader(b))
	return err
}
