package transform

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"github.com/gmarches/s3catalog/internal/audit"
	"github.com/gmarches/s3catalog/internal/domain"
	"github.com/gmarches/s3catalog/internal/storage"
)

// ZipExtractor unpacks a stored zip archive back into the object store
// under extracted/<archive name>/.
type ZipExtractor struct {
	store storage.ObjectStorage
	audit *audit.Logger
}

func NewZipExtractor(store storage.ObjectStorage, auditLog *audit.Logger) *ZipExtractor {
	return &ZipExtractor{store: store, audit: auditLog}
}

// Extract uploads each archive member as its own object and returns the
// keys written. Directory entries are skipped.
func (z *ZipExtractor) Extract(ctx context.Context, zipKey string) ([]string, error) {
	zipKey = strings.TrimSpace(zipKey)
	if zipKey == "" {
		err := domain.Validationf("zip_key is required")
		z.audit.Error(ctx, domain.OpExtract, nil, err)
		return nil, err
	}

	rc, err := z.store.GetObject(ctx, zipKey)
	if err != nil {
		err = domain.Dependency("download zip", err)
		z.audit.Error(ctx, domain.OpExtract, map[string]any{"zip_key": zipKey}, err)
		return nil, err
	}
	defer rc.Close()

	// zip needs random access, so the archive is buffered whole.
	data, err := io.ReadAll(rc)
	if err != nil {
		err = domain.Dependency("read zip", err)
		z.audit.Error(ctx, domain.OpExtract, map[string]any{"zip_key": zipKey}, err)
		return nil, err
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		err = domain.Validationf("%s is not a valid zip archive: %v", zipKey, err)
		z.audit.Error(ctx, domain.OpExtract, map[string]any{"zip_key": zipKey}, err)
		return nil, err
	}

	base := strings.TrimSuffix(path.Base(zipKey), ".zip")
	extracted := make([]string, 0, len(reader.File))

	for _, member := range reader.File {
		if member.FileInfo().IsDir() {
			continue
		}

		mr, err := member.Open()
		if err != nil {
			err = domain.Validationf("failed to open %s in %s: %v", member.Name, zipKey, err)
			z.audit.Error(ctx, domain.OpExtract, map[string]any{"zip_key": zipKey, "member": member.Name}, err)
			return nil, err
		}

		destKey := path.Join("extracted", base, member.Name)
		putErr := z.store.PutObject(ctx, destKey, mr, int64(member.UncompressedSize64), "application/octet-stream")
		mr.Close()
		if putErr != nil {
			putErr = domain.Dependency("upload extracted file", putErr)
			z.audit.Error(ctx, domain.OpExtract, map[string]any{"zip_key": zipKey, "member": member.Name}, putErr)
			return nil, putErr
		}

		extracted = append(extracted, destKey)
	}

	z.audit.Success(ctx, domain.OpExtract, map[string]any{
		"zip_key": zipKey,
		"count":   len(extracted),
	})
	return extracted, nil
}
