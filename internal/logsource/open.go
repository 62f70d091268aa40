package logsource

import (
	"context"
	"fmt"
	"strings"

	"github.com/notmyname/logflow/internal/objstore"
)

// Open picks a source for input: "-" reads stdin, s3:// URLs read from
// object storage using s3cfg, anything else is a local path.
func Open(ctx context.Context, input string, cfg Config, s3cfg objstore.S3Config) (LogSource, error) {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return nil, ErrNoInput
	case input == "-":
		return NewStdinSource(ctx, cfg), nil
	case objstore.IsURL(input):
		client, err := objstore.NewClient(s3cfg)
		if err != nil {
			return nil, fmt.Errorf("logsource: %w", err)
		}
		src, err := NewS3Source(ctx, client, input, cfg)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		src, err := NewFileSource(ctx, input, cfg)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}

// OpenAll opens every input and merges them. A single input is returned
// unwrapped. If any input fails to open, the ones already opened are stopped.
func OpenAll(ctx context.Context, inputs []string, cfg Config, s3cfg objstore.S3Config) (LogSource, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInput
	}
	if len(inputs) == 1 {
		return Open(ctx, inputs[0], cfg, s3cfg)
	}

	sources := make([]LogSource, 0, len(inputs))
	for _, input := range inputs {
		src, err := Open(ctx, input, cfg, s3cfg)
		if err != nil {
			for _, s := range sources {
				s.Stop()
			}
			return nil, err
		}
		sources = append(sources, src)
	}

	mux := NewMultiplexer(ctx, sources, cfg.withDefaults().ChannelBuffer)
	mux.Start()
	return mux, nil
}
