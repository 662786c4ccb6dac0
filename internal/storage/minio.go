package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gmarches/s3catalog/internal/config"
)

// MinioClient implements ObjectStorage for S3-compatible services.
type MinioClient struct {
	client *minio.Client
	bucket string
}

// NewMinioClient builds a MinioClient from store config.
func NewMinioClient(cfg config.StoreConfig) (*MinioClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("object store endpoint must be provided")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("object store credentials must be provided")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("object store bucket must be provided")
	}

	// minio wants a bare host:port endpoint; scheme comes from Secure.
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	return &MinioClient{client: client, bucket: cfg.Bucket}, nil
}

// Bucket returns the configured bucket name.
func (c *MinioClient) Bucket() string { return c.bucket }

// ListObjects walks the full recursive listing under prefix. The minio
// client paginates the underlying ListObjectsV2 calls internally
// (~1000 keys per page); entries arrive on a channel as pages are
// fetched.
func (c *MinioClient) ListObjects(ctx context.Context, prefix string, fn func(ObjectInfo) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for obj := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return fmt.Errorf("list objects failed: %w", obj.Err)
		}
		if err := fn(ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ETag:         strings.Trim(obj.ETag, `"`),
		}); err != nil {
			return err
		}
	}
	return nil
}

// GetObject opens a streaming reader for the object at key.
func (c *MinioClient) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s failed: %w", key, err)
	}
	return obj, nil
}

// PutObject uploads r to key. Pass size -1 when the length is unknown.
func (c *MinioClient) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := c.client.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s failed: %w", key, err)
	}
	return nil
}

// PresignedUpload returns a time-limited URL that authorizes exactly one
// PUT to key with no further credentials.
func (c *MinioClient) PresignedUpload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := c.client.PresignedPutObject(ctx, c.bucket, key, expiry)
	if err != nil {
		return "", fmt.Errorf("presign upload for %s failed: %w", key, err)
	}
	return u.String(), nil
}

var _ ObjectStorage = (*MinioClient)(nil)
