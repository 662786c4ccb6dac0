package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/gmarches/s3catalog/internal/domain"
	"github.com/gmarches/s3catalog/internal/repository"
)

type catalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) repository.CatalogRepository {
	return &catalogRepository{db: db}
}

// UpsertEntries writes the batch in a single multi-row INSERT. A
// conflicting (path, scan_date) row is overwritten, so re-running a
// scan for the same date is idempotent.
func (r *catalogRepository) UpsertEntries(ctx context.Context, entries []domain.CatalogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO catalog_entries (path, scan_date, size_bytes, last_modified, etag)
		VALUES `)

	args := make([]interface{}, 0, len(entries)*5)
	for i, e := range entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 5
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5))
		args = append(args, e.Path, e.ScanDate, e.SizeBytes, e.LastModified, e.ETag)
	}

	sb.WriteString(`
		ON CONFLICT (path, scan_date) DO UPDATE SET
			size_bytes    = EXCLUDED.size_bytes,
			last_modified = EXCLUDED.last_modified,
			etag          = EXCLUDED.etag`)

	if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("error upserting catalog entries: %w", err)
	}
	return nil
}

func (r *catalogRepository) ListRecent(ctx context.Context, cutoffDate string, limit int) ([]domain.CatalogEntry, error) {
	query := `
		SELECT path, scan_date, size_bytes, last_modified, etag
		FROM catalog_entries
		WHERE scan_date >= $1
		ORDER BY scan_date DESC, path ASC
		LIMIT $2
	`

	entries := make([]domain.CatalogEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, cutoffDate, limit); err != nil {
		return nil, fmt.Errorf("error listing recent entries: %w", err)
	}
	return entries, nil
}

// SearchByPath matches substring against path with ILIKE. No index can
// serve a %substring% predicate, so this is a full table scan bounded
// only by the row limit; that inefficiency is accepted rather than
// switching to an indexed search, which would change which rows come
// back when more than limit rows match.
func (r *catalogRepository) SearchByPath(ctx context.Context, substring string, limit int) ([]domain.CatalogEntry, error) {
	query := `
		SELECT path, scan_date, size_bytes, last_modified, etag
		FROM catalog_entries
		WHERE path ILIKE '%' || $1 || '%'
		LIMIT $2
	`

	entries := make([]domain.CatalogEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, escapeLike(substring), limit); err != nil {
		return nil, fmt.Errorf("error searching entries: %w", err)
	}
	return entries, nil
}

// escapeLike neutralizes LIKE metacharacters so the substring is
// matched literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
