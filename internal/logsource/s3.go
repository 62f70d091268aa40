package logsource

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"

	"github.com/notmyname/logflow/internal/objstore"
)

// S3Source streams one object from an S3-compatible bucket.
type S3Source struct {
	*readerSource
}

// NewS3Source fetches s3://bucket/key. The object is stat'ed up front so
// that a missing key fails here rather than mid-stream.
func NewS3Source(ctx context.Context, client *minio.Client, rawURL string, cfg Config) (*S3Source, error) {
	bucket, key, err := objstore.ParseBucketURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("logsource: %w", err)
	}
	if key == "" {
		return nil, fmt.Errorf("logsource: %s names no object", rawURL)
	}

	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("logsource: get %s: %w", rawURL, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, fmt.Errorf("logsource: stat %s: %w", rawURL, err)
	}
	return &S3Source{newReaderSource(ctx, "s3", rawURL, obj, cfg)}, nil
}
