package repository

import (
	"context"

	"github.com/gmarches/s3catalog/internal/domain"
)

// CatalogRepository is the catalog store contract: point upserts keyed
// by (path, scan_date) plus the two read shapes the directory needs.
type CatalogRepository interface {
	// UpsertEntries writes a batch of entries, overwriting any existing
	// row with the same (path, scan_date). Last writer wins.
	UpsertEntries(ctx context.Context, entries []domain.CatalogEntry) error

	// ListRecent returns entries with scan_date >= cutoffDate, ordered
	// by scan_date descending then path, up to limit rows.
	ListRecent(ctx context.Context, cutoffDate string, limit int) ([]domain.CatalogEntry, error)

	// SearchByPath returns up to limit entries whose path contains
	// substring, case-insensitively.
	SearchByPath(ctx context.Context, substring string, limit int) ([]domain.CatalogEntry, error)
}

// AuditRepository is the append-only operation log sink. Records are
// never updated or read back by this service.
type AuditRepository interface {
	Insert(ctx context.Context, rec domain.AuditRecord) error
}
