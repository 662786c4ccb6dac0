package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gmarches/s3catalog/internal/audit"
	"github.com/gmarches/s3catalog/internal/cache"
	"github.com/gmarches/s3catalog/internal/domain"
	"github.com/gmarches/s3catalog/internal/repository"
	"github.com/gmarches/s3catalog/internal/storage"
)

const defaultScanBatchSize = 500

// Scanner rewrites the catalog with a fresh inventory of the object
// store, one batch of entries per write. A scan is not transactional:
// a failure mid-listing leaves the batches already written in place for
// that date, and the partial counts are reported in the audit detail.
type Scanner struct {
	store     storage.ObjectStorage
	catalog   repository.CatalogRepository
	audit     *audit.Logger
	cache     cache.QueryCache
	prefix    string
	batchSize int
	now       func() time.Time
}

type ScannerOption func(*Scanner)

// WithScanClock overrides the clock used to stamp scan dates.
func WithScanClock(now func() time.Time) ScannerOption {
	return func(s *Scanner) { s.now = now }
}

// WithScanPrefix restricts the scan to keys under prefix.
func WithScanPrefix(prefix string) ScannerOption {
	return func(s *Scanner) { s.prefix = prefix }
}

// WithScanBatchSize sets how many entries are buffered per upsert.
func WithScanBatchSize(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func NewScanner(store storage.ObjectStorage, catalog repository.CatalogRepository, auditLog *audit.Logger, queryCache cache.QueryCache, opts ...ScannerOption) *Scanner {
	if queryCache == nil {
		queryCache = cache.NewNoopQueryCache()
	}
	s := &Scanner{
		store:     store,
		catalog:   catalog,
		audit:     auditLog,
		cache:     queryCache,
		batchSize: defaultScanBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan enumerates every object under the configured prefix and upserts
// one catalog entry per object, stamped with today's date. Counters
// only include entries whose batch was written, so the audited totals
// of a failed scan reflect what actually landed in the catalog.
func (s *Scanner) Scan(ctx context.Context) (domain.ScanResult, error) {
	scanDate := s.now().Format(domain.DateFormat)

	var (
		files        int64
		totalSize    int64
		pendingFiles int64
		pendingSize  int64
	)
	batch := make([]domain.CatalogEntry, 0, s.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.catalog.UpsertEntries(ctx, batch); err != nil {
			return err
		}
		files += pendingFiles
		totalSize += pendingSize
		pendingFiles, pendingSize = 0, 0
		batch = batch[:0]
		return nil
	}

	err := s.store.ListObjects(ctx, s.prefix, func(obj storage.ObjectInfo) error {
		batch = append(batch, domain.CatalogEntry{
			Path:         obj.Key,
			ScanDate:     scanDate,
			SizeBytes:    obj.Size,
			LastModified: obj.LastModified,
			ETag:         obj.ETag,
		})
		pendingFiles++
		pendingSize += obj.Size
		if len(batch) >= s.batchSize {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}

	if err != nil {
		s.audit.Error(ctx, domain.OpScan, map[string]any{
			"scan_date":       scanDate,
			"files_processed": files,
			"total_size":      totalSize,
		}, err)
		return domain.ScanResult{}, domain.Dependency("scan", err)
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("scan: query cache invalidation failed")
	}

	result := domain.ScanResult{
		ScanDate:       scanDate,
		FilesProcessed: files,
		TotalSizeBytes: totalSize,
	}

	s.audit.Success(ctx, domain.OpScan, map[string]any{
		"scan_date":       result.ScanDate,
		"files_processed": result.FilesProcessed,
		"total_size":      result.TotalSizeBytes,
	})

	log.Info().
		Str("scan_date", result.ScanDate).
		Int64("files_processed", result.FilesProcessed).
		Int64("total_size", result.TotalSizeBytes).
		Msg("bucket scan completed")

	return result, nil
}
