// Package publish uploads the artifacts of a run to object storage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/notmyname/logflow/internal/objstore"
)

// Publisher uploads files under one key prefix.
type Publisher struct {
	uploader Uploader
	prefix   string
}

// New returns nil when cfg.BucketURL is empty.
func New(ctx context.Context, cfg Config) (*Publisher, error) {
	if strings.TrimSpace(cfg.BucketURL) == "" {
		return nil, nil
	}
	bucket, prefix, err := objstore.ParseBucketURL(cfg.BucketURL)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	uploader, err := NewS3Uploader(ctx, bucket, cfg.S3, cfg.CreateBucket)
	if err != nil {
		return nil, err
	}
	return NewWithUploader(uploader, prefix), nil
}

// NewWithUploader builds a Publisher around any Uploader.
func NewWithUploader(uploader Uploader, prefix string) *Publisher {
	return &Publisher{uploader: uploader, prefix: strings.Trim(prefix, "/")}
}

// ObjectKey is the key a file is stored under for runID.
func (p *Publisher) ObjectKey(runID, localPath string) string {
	return path.Join(p.prefix, runID, filepath.Base(localPath))
}

// Publish uploads each file under prefix/runID/ and returns the keys written.
// It stops at the first failure or when ctx is cancelled.
func (p *Publisher) Publish(ctx context.Context, runID string, files []string) ([]string, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, errors.New("publish: run id is empty")
	}

	keys := make([]string, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return keys, fmt.Errorf("publish: %w", err)
		}

		info, err := os.Stat(f)
		if err != nil {
			return keys, fmt.Errorf("publish: %w", err)
		}
		if info.IsDir() {
			return keys, fmt.Errorf("publish: %s is a directory", f)
		}

		key := p.ObjectKey(runID, f)
		if err := p.uploader.UploadFile(ctx, f, key); err != nil {
			return keys, err
		}
		log.Info().Str("component", "publish").Str("key", key).Int64("bytes", info.Size()).Msg("uploaded artifact")
		keys = append(keys, key)
	}
	return keys, nil
}
