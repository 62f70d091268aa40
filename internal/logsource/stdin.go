package logsource

import (
	"context"
	"io"
	"os"
)

// StdinSource reads log lines from stdin.
type StdinSource struct {
	*readerSource
}

// NewStdinSource creates a StdinSource that reads from stdin in a background goroutine.
func NewStdinSource(ctx context.Context, cfg Config) *StdinSource {
	return newStdinSourceWithReader(ctx, os.Stdin, cfg)
}

func newStdinSourceWithReader(ctx context.Context, r io.Reader, cfg Config) *StdinSource {
	rc, ok := r.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(r)
	}
	return &StdinSource{newReaderSource(ctx, "stdin", "stdin", rc, cfg)}
}
