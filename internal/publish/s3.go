package publish

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/notmyname/logflow/internal/objstore"
)

var contentTypes = map[string]string{
	".csv":    "text/csv",
	".json":   "application/json",
	".yaml":   "application/yaml",
	".txt":    "text/plain; charset=utf-8",
	".dot":    "text/vnd.graphviz",
	".jsonl":  "application/x-ndjson",
	".duckdb": "application/octet-stream",
}

// ContentType picks the upload content type from the file extension.
func ContentType(path string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// S3Uploader uploads artifacts to an S3-compatible bucket.
type S3Uploader struct {
	client *minio.Client
	bucket string
}

// NewS3Uploader connects to the bucket named by bucket. When create is set
// the bucket is made if missing.
func NewS3Uploader(ctx context.Context, bucket string, cfg objstore.S3Config, create bool) (*S3Uploader, error) {
	client, err := objstore.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}

	if create {
		exists, err := client.BucketExists(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("publish: check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
				return nil, fmt.Errorf("publish: create bucket %s: %w", bucket, err)
			}
		}
	}

	return &S3Uploader{client: client, bucket: bucket}, nil
}

// UploadFile uploads localPath as objectKey.
func (u *S3Uploader) UploadFile(ctx context.Context, localPath, objectKey string) error {
	_, err := u.client.FPutObject(ctx, u.bucket, objectKey, localPath, minio.PutObjectOptions{
		ContentType: ContentType(localPath),
	})
	if err != nil {
		return fmt.Errorf("publish: upload %s to s3://%s/%s: %w", filepath.Base(localPath), u.bucket, objectKey, err)
	}
	return nil
}
