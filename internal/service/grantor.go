package service

import (
	"context"
	"strings"
	"time"

	"github.com/gmarches/s3catalog/internal/audit"
	"github.com/gmarches/s3catalog/internal/domain"
	"github.com/gmarches/s3catalog/internal/storage"
)

// DefaultGrantTTLSeconds applies when the caller omits expires_in.
const DefaultGrantTTLSeconds = 3600

// Grantor issues short-lived presigned upload authorizations against
// the object store. It is independent of the catalog; only the audit
// logger is shared.
type Grantor struct {
	store  storage.ObjectStorage
	audit  *audit.Logger
	bucket string
}

func NewGrantor(store storage.ObjectStorage, auditLog *audit.Logger, bucket string) *Grantor {
	return &Grantor{store: store, audit: auditLog, bucket: bucket}
}

// IssueUploadGrant returns a presigned PUT URL for filename that needs
// no further credentials and stops working after ttlSeconds.
func (g *Grantor) IssueUploadGrant(ctx context.Context, filename string, ttlSeconds int) (*domain.UploadGrant, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		err := domain.Validationf("filename is required")
		g.audit.Error(ctx, domain.OpPresign, nil, err)
		return nil, err
	}
	if ttlSeconds <= 0 {
		err := domain.Validationf("expires_in must be a positive integer")
		g.audit.Error(ctx, domain.OpPresign, map[string]any{"filename": filename}, err)
		return nil, err
	}

	url, err := g.store.PresignedUpload(ctx, filename, time.Duration(ttlSeconds)*time.Second)
	if err != nil {
		err = domain.Dependency("presign upload", err)
		g.audit.Error(ctx, domain.OpPresign, map[string]any{"filename": filename, "expires_in": ttlSeconds}, err)
		return nil, err
	}

	g.audit.Success(ctx, domain.OpPresign, map[string]any{
		"filename":   filename,
		"expires_in": ttlSeconds,
	})

	return &domain.UploadGrant{
		PresignedURL: url,
		Filename:     filename,
		Bucket:       g.bucket,
		ExpiresIn:    ttlSeconds,
	}, nil
}
