package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gmarches/s3catalog/internal/audit"
	"github.com/gmarches/s3catalog/internal/cache"
	"github.com/gmarches/s3catalog/internal/domain"
	"github.com/gmarches/s3catalog/internal/repository"
)

// Default parameter values applied by the request boundary when the
// caller omits them.
const (
	DefaultListDays    = 1
	DefaultListLimit   = 100
	DefaultSearchLimit = 50
)

// Directory answers read queries against the catalog. It never writes
// catalog rows; the scanner owns those.
type Directory struct {
	catalog repository.CatalogRepository
	audit   *audit.Logger
	cache   cache.QueryCache
	now     func() time.Time
}

type DirectoryOption func(*Directory)

// WithDirectoryClock overrides the clock used for cutoff arithmetic.
func WithDirectoryClock(now func() time.Time) DirectoryOption {
	return func(d *Directory) { d.now = now }
}

func NewDirectory(catalog repository.CatalogRepository, auditLog *audit.Logger, queryCache cache.QueryCache, opts ...DirectoryOption) *Directory {
	if queryCache == nil {
		queryCache = cache.NewNoopQueryCache()
	}
	d := &Directory{
		catalog: catalog,
		audit:   auditLog,
		cache:   queryCache,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ListRecent returns entries scanned on or after today minus days. The
// cutoff is calendar arithmetic: days=1 means the named previous
// calendar date, not now minus 24 hours.
func (d *Directory) ListRecent(ctx context.Context, days, limit int) (*domain.FileListing, error) {
	if days <= 0 {
		err := domain.Validationf("days must be a positive integer")
		d.audit.Error(ctx, domain.OpList, map[string]any{"days": days, "limit": limit}, err)
		return nil, err
	}
	if limit <= 0 {
		err := domain.Validationf("limit must be a positive integer")
		d.audit.Error(ctx, domain.OpList, map[string]any{"days": days, "limit": limit}, err)
		return nil, err
	}

	cutoff := d.now().AddDate(0, 0, -days).Format(domain.DateFormat)

	cacheKey := cache.ListingKey(domain.OpList, cutoff, limit)
	if listing, ok, err := d.cache.GetListing(ctx, cacheKey); err == nil && ok {
		d.audit.Success(ctx, domain.OpList, map[string]any{
			"days":        days,
			"cutoff_date": cutoff,
			"count":       len(listing.Files),
			"cached":      true,
		})
		return listing, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("directory: cache get failed")
	}

	entries, err := d.catalog.ListRecent(ctx, cutoff, limit)
	if err != nil {
		err = domain.Dependency("list recent", err)
		d.audit.Error(ctx, domain.OpList, map[string]any{"days": days, "cutoff_date": cutoff}, err)
		return nil, err
	}

	listing := &domain.FileListing{Files: entries, CutoffDate: cutoff}

	if err := d.cache.SetListing(ctx, cacheKey, listing); err != nil {
		log.Warn().Err(err).Msg("directory: cache set failed")
	}

	d.audit.Success(ctx, domain.OpList, map[string]any{
		"days":        days,
		"cutoff_date": cutoff,
		"count":       len(entries),
	})
	return listing, nil
}

// SearchByName returns up to limit entries whose path contains name,
// case-insensitively. The match runs as a bounded unindexed scan of the
// whole catalog (see the repository for why that stays unindexed).
func (d *Directory) SearchByName(ctx context.Context, name string, limit int) (*domain.FileListing, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		err := domain.Validationf("name parameter is required")
		d.audit.Error(ctx, domain.OpSearch, map[string]any{"limit": limit}, err)
		return nil, err
	}
	if limit <= 0 {
		err := domain.Validationf("limit must be a positive integer")
		d.audit.Error(ctx, domain.OpSearch, map[string]any{"search_name": name, "limit": limit}, err)
		return nil, err
	}

	lowered := strings.ToLower(name)

	cacheKey := cache.ListingKey(domain.OpSearch, lowered, limit)
	if listing, ok, err := d.cache.GetListing(ctx, cacheKey); err == nil && ok {
		d.audit.Success(ctx, domain.OpSearch, map[string]any{
			"search_name": lowered,
			"count":       len(listing.Files),
			"cached":      true,
		})
		return listing, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("directory: cache get failed")
	}

	entries, err := d.catalog.SearchByPath(ctx, lowered, limit)
	if err != nil {
		err = domain.Dependency("search by name", err)
		d.audit.Error(ctx, domain.OpSearch, map[string]any{"search_name": lowered}, err)
		return nil, err
	}

	listing := &domain.FileListing{Files: entries, SearchName: lowered}

	if err := d.cache.SetListing(ctx, cacheKey, listing); err != nil {
		log.Warn().Err(err).Msg("directory: cache set failed")
	}

	d.audit.Success(ctx, domain.OpSearch, map[string]any{
		"search_name": lowered,
		"count":       len(entries),
	})
	return listing, nil
}
