package logsource

import (
	"context"
	"errors"
	"sync"

	"github.com/notmyname/logflow/internal/model"
)

// Multiplexer merges several sources into one stream. Line order across
// sources is not preserved; order within a source is.
type Multiplexer struct {
	ctx    context.Context
	cancel context.CancelFunc

	sources []LogSource
	lines   chan model.IngestEnvelope

	startOnce sync.Once
	stopOnce  sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewMultiplexer wraps sources. Call Start before reading Lines.
func NewMultiplexer(parent context.Context, sources []LogSource, buffer int) *Multiplexer {
	if buffer <= 0 {
		buffer = DefaultChannelBuffer
	}
	ctx, cancel := context.WithCancel(parent)
	return &Multiplexer{
		ctx:     ctx,
		cancel:  cancel,
		sources: sources,
		lines:   make(chan model.IngestEnvelope, buffer),
	}
}

// Start begins forwarding. It is safe to call more than once.
func (m *Multiplexer) Start() {
	m.startOnce.Do(func() {
		if len(m.sources) == 0 {
			m.closeOutput()
			return
		}

		for _, src := range m.sources {
			m.wg.Add(1)
			go m.forward(src)
		}

		go func() {
			m.wg.Wait()
			m.closeOutput()
		}()
	})
}

// Stop stops every source and closes Lines.
func (m *Multiplexer) Stop() {
	m.stopOnce.Do(func() {
		m.cancel()
		for _, src := range m.sources {
			src.Stop()
		}
		m.wg.Wait()
		m.closeOutput()
	})
}

func (m *Multiplexer) Lines() <-chan model.IngestEnvelope { return m.lines }

// Name is the name of the first source, or "multi" when there are several.
func (m *Multiplexer) Name() string {
	switch len(m.sources) {
	case 0:
		return ""
	case 1:
		return m.sources[0].Name()
	default:
		return "multi"
	}
}

// Err joins the errors of every source.
func (m *Multiplexer) Err() error {
	var errs []error
	for _, src := range m.sources {
		if err := src.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multiplexer) forward(src LogSource) {
	defer m.wg.Done()

	sourceLines := src.Lines()
	for {
		select {
		case <-m.ctx.Done():
			return
		case line, ok := <-sourceLines:
			if !ok {
				return
			}
			select {
			case m.lines <- line:
			case <-m.ctx.Done():
				return
			}
		}
	}
}

func (m *Multiplexer) closeOutput() {
	m.closeOnce.Do(func() {
		close(m.lines)
	})
}
