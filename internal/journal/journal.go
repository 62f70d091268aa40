// Package journal writes rejected log lines, with the reason they were
// dropped, to an append-only JSON-lines file.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/notmyname/logflow/internal/model"
)

const (
	defaultFileMode = 0644
	defaultDirMode  = 0755
	writeBufferSize = 256 * 1024
)

// Entry is one journaled line.
type Entry struct {
	Seq    uint64           `json:"seq"`
	Source string           `json:"source,omitempty"`
	LineNo int64            `json:"line_no,omitempty"`
	Reason model.SkipReason `json:"reason"`
	Line   string           `json:"line"`
}

// Journal is safe for concurrent use by several processors.
type Journal struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	w       *bufio.Writer
	nextSeq uint64
}

// Open creates path, truncating any journal left by a previous run.
func Open(path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), defaultDirMode); err != nil {
		return nil, fmt.Errorf("journal: mkdir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, defaultFileMode)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}

	return &Journal{
		path:    path,
		file:    f,
		w:       bufio.NewWriterSize(f, writeBufferSize),
		nextSeq: 1,
	}, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string { return j.path }

// Reject implements model.RejectSink.
func (j *Journal) Reject(env model.IngestEnvelope, reason model.SkipReason) error {
	_, err := j.Append(Entry{Source: env.Source, LineNo: env.LineNo, Reason: reason, Line: env.Line})
	return err
}

// Append writes e and returns its sequence number.
func (j *Journal) Append(e Entry) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return 0, errors.New("journal: closed")
	}

	e.Seq = j.nextSeq
	line, err := json.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("journal: marshal entry: %w", err)
	}
	line = append(line, '\n')

	if _, err := j.w.Write(line); err != nil {
		return 0, fmt.Errorf("journal: write entry: %w", err)
	}
	j.nextSeq++
	return e.Seq, nil
}

// Count returns how many entries were appended.
func (j *Journal) Count() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.nextSeq - 1
}

// Flush pushes buffered entries to the file.
func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	if err := j.w.Flush(); err != nil {
		return fmt.Errorf("journal: flush: %w", err)
	}
	return nil
}

// Close flushes and closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	ferr := j.w.Flush()
	cerr := j.file.Close()
	j.file = nil
	if ferr != nil {
		return fmt.Errorf("journal: flush: %w", ferr)
	}
	if cerr != nil {
		return fmt.Errorf("journal: close: %w", cerr)
	}
	return nil
}

// Replay calls fn for each entry of the journal at path in file order.
// A partially written trailing line is ignored.
func Replay(path string, fn func(Entry) error) error {
	if fn == nil {
		return errors.New("journal: replay callback is nil")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("journal: open for replay: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("journal: replay read: %w", err)
		}
		if len(line) == 0 {
			if errors.Is(err, io.EOF) {
				return nil
			}
			continue
		}
		if !strings.HasSuffix(string(line), "\n") {
			// Ignore a potentially partial trailing line.
			return nil
		}

		var e Entry
		if uerr := json.Unmarshal(line, &e); uerr != nil {
			return fmt.Errorf("journal: replay decode: %w", uerr)
		}
		if rerr := fn(e); rerr != nil {
			return rerr
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}
