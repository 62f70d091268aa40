package publish

import (
	"context"

	"github.com/notmyname/logflow/internal/objstore"
)

// Config controls artifact uploads.
type Config struct {
	// BucketURL is s3://bucket/prefix; an empty value disables publishing.
	BucketURL string
	S3        objstore.S3Config

	// CreateBucket makes the bucket when it does not exist yet.
	CreateBucket bool
}

// Uploader uploads one artifact under the given object key.
type Uploader interface {
	UploadFile(ctx context.Context, localPath, objectKey string) error
}
