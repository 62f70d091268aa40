// Package logsource delivers raw log lines from files, stdin or object
// storage as a stream of envelopes.
package logsource

import (
	"errors"

	"github.com/notmyname/logflow/internal/model"
)

// LogSource is a unified interface for all log input sources (file, stdin, s3).
type LogSource interface {
	Lines() <-chan model.IngestEnvelope // read-only channel of log lines
	Stop()                              // stop reading; Lines is closed soon after
	Name() string                       // "file", "stdin", "s3"
	Err() error                         // read error, valid once Lines is closed
}

// ErrNoInput is returned when no input was named.
var ErrNoInput = errors.New("logsource: no input given")

const (
	// DefaultReadBuffer is the read buffer size. Inputs run to millions of lines.
	DefaultReadBuffer = model.DefaultReadBuffer

	// DefaultChannelBuffer is the default channel buffer size for lines.
	DefaultChannelBuffer = 50_000
)

// Config holds tunable parameters shared by all sources.
type Config struct {
	ReadBuffer    int
	ChannelBuffer int
}

func (c Config) withDefaults() Config {
	if c.ReadBuffer <= 0 {
		c.ReadBuffer = DefaultReadBuffer
	}
	if c.ChannelBuffer <= 0 {
		c.ChannelBuffer = DefaultChannelBuffer
	}
	return c
}
