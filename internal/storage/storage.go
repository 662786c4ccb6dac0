package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// ObjectStorage captures the object-store operations the catalog needs.
// ListObjects streams the bucket listing page-at-a-time through fn so a
// scan never has to hold the full inventory in memory; a non-nil error
// from fn stops the listing and is returned as-is.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string, fn func(ObjectInfo) error) error
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignedUpload(ctx context.Context, key string, expiry time.Duration) (string, error)
}
