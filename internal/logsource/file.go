package logsource

import (
	"context"
	"fmt"
	"os"
)

// FileSource reads a local log file, gzip-compressed or not.
type FileSource struct {
	*readerSource
	path string
}

// NewFileSource opens path and starts reading it. A missing or unreadable
// file is reported here, before any line is produced.
func NewFileSource(ctx context.Context, path string, cfg Config) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("logsource: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("logsource: stat %s: %w", path, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("logsource: %s is a directory", path)
	}
	return &FileSource{readerSource: newReaderSource(ctx, "file", path, f, cfg), path: path}, nil
}

// Path returns the file being read.
func (s *FileSource) Path() string { return s.path }
