package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmarches/s3catalog/internal/audit"
	"github.com/gmarches/s3catalog/internal/domain"
	"github.com/gmarches/s3catalog/internal/storage"
)

func threeObjects() []storage.ObjectInfo {
	mod := time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC)
	return []storage.ObjectInfo{
		{Key: "a/1.txt", Size: 10, LastModified: mod, ETag: "e1"},
		{Key: "a/2.txt", Size: 20, LastModified: mod, ETag: "e2"},
		{Key: "b/3.txt", Size: 30, LastModified: mod, ETag: "e3"},
	}
}

func TestScanInventoriesBucket(t *testing.T) {
	catalog := newMemCatalog()
	auditRepo := &memAudit{}
	scanner := NewScanner(
		&fakeLister{objects: threeObjects()},
		catalog,
		audit.NewLogger(auditRepo),
		nil,
		WithScanClock(fixedClock("2024-06-01")),
	)

	result, err := scanner.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2024-06-01", result.ScanDate)
	assert.Equal(t, int64(3), result.FilesProcessed)
	assert.Equal(t, int64(60), result.TotalSizeBytes)
	assert.Equal(t, 3, catalog.entryCount())

	entries, err := catalog.ListRecent(context.Background(), "2024-06-01", 10)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, "2024-06-01", e.ScanDate)
	}

	records := auditRepo.all()
	require.Len(t, records, 1)
	assert.Equal(t, domain.OpScan, records[0].Operation)
	assert.Equal(t, domain.StatusSuccess, records[0].Status)
	assert.Equal(t, int64(3), records[0].Details["files_processed"])
	assert.Equal(t, int64(60), records[0].Details["total_size"])
}

func TestScanIsIdempotentForSameDate(t *testing.T) {
	catalog := newMemCatalog()
	scanner := NewScanner(
		&fakeLister{objects: threeObjects()},
		catalog,
		audit.NewLogger(&memAudit{}),
		nil,
		WithScanClock(fixedClock("2024-06-01")),
	)

	first, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	second, err := scanner.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 3, catalog.entryCount(), "rescan of the same date must overwrite, not insert")
}

func TestScanKeepsSeparateDates(t *testing.T) {
	catalog := newMemCatalog()
	lister := &fakeLister{objects: threeObjects()}

	for _, date := range []string{"2024-05-31", "2024-06-01"} {
		scanner := NewScanner(lister, catalog, audit.NewLogger(&memAudit{}), nil,
			WithScanClock(fixedClock(date)))
		_, err := scanner.Scan(context.Background())
		require.NoError(t, err)
	}

	// Inventories from different dates coexist as a time series.
	assert.Equal(t, 6, catalog.entryCount())
}

func TestScanPartialFailureReportsPartialCounts(t *testing.T) {
	catalog := newMemCatalog()
	catalog.failAfter = 1 // first batch lands, second batch fails
	auditRepo := &memAudit{}
	scanner := NewScanner(
		&fakeLister{objects: threeObjects()},
		catalog,
		audit.NewLogger(auditRepo),
		nil,
		WithScanClock(fixedClock("2024-06-01")),
		WithScanBatchSize(2),
	)

	_, err := scanner.Scan(context.Background())
	require.Error(t, err)

	var depErr *domain.DependencyError
	require.ErrorAs(t, err, &depErr)

	records := auditRepo.all()
	require.Len(t, records, 1)
	assert.Equal(t, domain.StatusError, records[0].Status)
	// Only the flushed batch is counted; the audit detail is how a
	// partial inventory is detected.
	assert.Equal(t, int64(2), records[0].Details["files_processed"])
	assert.Equal(t, int64(30), records[0].Details["total_size"])
	assert.Contains(t, records[0].Details, "error")
	assert.Equal(t, 2, catalog.entryCount())
}

func TestScanListingFailureAuditsError(t *testing.T) {
	auditRepo := &memAudit{}
	scanner := NewScanner(
		&fakeLister{listErr: context.DeadlineExceeded},
		newMemCatalog(),
		audit.NewLogger(auditRepo),
		nil,
		WithScanClock(fixedClock("2024-06-01")),
	)

	_, err := scanner.Scan(context.Background())
	require.Error(t, err)

	records := auditRepo.all()
	require.Len(t, records, 1)
	assert.Equal(t, domain.OpScan, records[0].Operation)
	assert.Equal(t, domain.StatusError, records[0].Status)
	assert.Equal(t, int64(0), records[0].Details["files_processed"])
}

func TestScanSucceedsWhenAuditWriteFails(t *testing.T) {
	scanner := NewScanner(
		&fakeLister{objects: threeObjects()},
		newMemCatalog(),
		audit.NewLogger(&memAudit{failing: true}),
		nil,
		WithScanClock(fixedClock("2024-06-01")),
	)

	result, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.FilesProcessed)
}
