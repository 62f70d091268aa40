// Package logger provides structured logging using zerolog.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var globalLogger zerolog.Logger

// Config selects level, destination and format.
type Config struct {
	Level      string `mapstructure:"level" json:"level" yaml:"level"`
	Debug      bool   `mapstructure:"debug" json:"debug" yaml:"debug"`
	Output     string `mapstructure:"output" json:"output" yaml:"output"` // "stderr" (default) or "stdout"
	TimeFormat string `mapstructure:"time_format" json:"time_format" yaml:"time_format"`
	Console    bool   `mapstructure:"console" json:"console" yaml:"console"` // human-readable instead of JSON
}

func init() {
	globalLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	zerolog.TimeFieldFormat = time.RFC3339
}

// Init configures the global logger. Reports go to stdout, so diagnostics
// default to stderr.
func Init(config Config) (zerolog.Logger, error) {
	var output io.Writer = os.Stderr
	switch config.Output {
	case "", "stderr":
	case "stdout":
		output = os.Stdout
	default:
		return globalLogger, fmt.Errorf("logger: unknown output %q", config.Output)
	}
	return InitWriter(config, output)
}

// InitWriter is Init with an explicit destination.
func InitWriter(config Config, output io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if config.Debug {
		level = zerolog.DebugLevel
	} else if config.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(config.Level)
		if err != nil {
			return globalLogger, fmt.Errorf("logger: %w", err)
		}
	}

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}
	if config.Console {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.TimeOnly}
	}

	globalLogger = zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	log.Logger = globalLogger
	return globalLogger, nil
}

// GetLogger returns the global logger.
func GetLogger() zerolog.Logger {
	return globalLogger
}

// WithComponent returns a child logger tagged with component.
func WithComponent(component string) zerolog.Logger {
	return globalLogger.With().Str("component", component).Logger()
}
