package logsource

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/notmyname/logflow/internal/model"
)

var gzipMagic = []byte{0x1f, 0x8b}

// readerSource streams lines from an io.ReadCloser in a background goroutine.
type readerSource struct {
	name   string
	label  string
	ch     chan model.IngestEnvelope
	cancel context.CancelFunc
	rc     io.Closer

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

func newReaderSource(ctx context.Context, name, label string, rc io.ReadCloser, cfg Config) *readerSource {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(ctx)
	s := &readerSource{
		name:   name,
		label:  label,
		ch:     make(chan model.IngestEnvelope, cfg.ChannelBuffer),
		cancel: cancel,
		rc:     rc,
	}
	go s.read(ctx, rc, cfg.ReadBuffer)
	return s
}

func (s *readerSource) read(ctx context.Context, r io.Reader, bufSize int) {
	defer close(s.ch)
	defer s.closeReader()

	br, err := decompress(bufio.NewReaderSize(r, bufSize), bufSize)
	if err != nil {
		s.setErr(err)
		return
	}

	var lineNo int64
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			lineNo++
			env := model.IngestEnvelope{
				Source: s.label,
				LineNo: lineNo,
				Line:   strings.TrimRight(line, "\r\n"),
			}
			select {
			case s.ch <- env:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			// A read interrupted by Stop is not an input error.
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.setErr(fmt.Errorf("logsource: read %s: %w", s.label, err))
			}
			return
		}
	}
}

// decompress transparently unwraps gzip input, detected by its magic bytes.
func decompress(br *bufio.Reader, bufSize int) (*bufio.Reader, error) {
	head, err := br.Peek(len(gzipMagic))
	if err != nil || !bytes.Equal(head, gzipMagic) {
		// Short or empty input is read as plain text.
		return br, nil
	}
	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("logsource: open gzip stream: %w", err)
	}
	return bufio.NewReaderSize(zr, bufSize), nil
}

func (s *readerSource) closeReader() {
	s.closeOnce.Do(func() { _ = s.rc.Close() })
}

func (s *readerSource) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *readerSource) Lines() <-chan model.IngestEnvelope { return s.ch }
func (s *readerSource) Name() string                       { return s.name }

// Stop cancels reading and closes the underlying reader, which unblocks a
// read pending on a pipe or terminal.
func (s *readerSource) Stop() {
	s.cancel()
	s.closeReader()
}

func (s *readerSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
