package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gmarches/s3catalog/internal/domain"
	"github.com/gmarches/s3catalog/internal/storage"
)

// memCatalog is an in-memory CatalogRepository keyed by
// (path, scan_date), mirroring the upsert semantics of the real table.
type memCatalog struct {
	mu      sync.Mutex
	rows    map[string]domain.CatalogEntry
	batches int
	// failAfter makes UpsertEntries fail once this many batches have
	// succeeded; -1 disables failures.
	failAfter int
	listErr   error
}

func newMemCatalog() *memCatalog {
	return &memCatalog{rows: make(map[string]domain.CatalogEntry), failAfter: -1}
}

func (m *memCatalog) UpsertEntries(_ context.Context, entries []domain.CatalogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAfter >= 0 && m.batches >= m.failAfter {
		return errors.New("catalog store unavailable")
	}
	m.batches++
	for _, e := range entries {
		m.rows[e.Path+"|"+e.ScanDate] = e
	}
	return nil
}

func (m *memCatalog) ListRecent(_ context.Context, cutoffDate string, limit int) ([]domain.CatalogEntry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CatalogEntry, 0)
	for _, e := range m.rows {
		if e.ScanDate >= cutoffDate {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScanDate != out[j].ScanDate {
			return out[i].ScanDate > out[j].ScanDate
		}
		return out[i].Path < out[j].Path
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memCatalog) SearchByPath(_ context.Context, substring string, limit int) ([]domain.CatalogEntry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CatalogEntry, 0)
	for _, e := range m.rows {
		if strings.Contains(strings.ToLower(e.Path), strings.ToLower(substring)) {
			out = append(out, e)
			if len(out) >= limit {
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (m *memCatalog) entryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// memAudit records audit inserts; failing simulates an unreachable log
// store.
type memAudit struct {
	mu      sync.Mutex
	records []domain.AuditRecord
	failing bool
}

func (m *memAudit) Insert(_ context.Context, rec domain.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("audit store down")
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memAudit) all() []domain.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AuditRecord(nil), m.records...)
}

// fakeLister serves a fixed object listing.
type fakeLister struct {
	objects []storage.ObjectInfo
	listErr error
}

func (f *fakeLister) ListObjects(_ context.Context, _ string, fn func(storage.ObjectInfo) error) error {
	if f.listErr != nil {
		return f.listErr
	}
	for _, obj := range f.objects {
		if err := fn(obj); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeLister) GetObject(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeLister) PutObject(context.Context, string, io.Reader, int64, string) error {
	return errors.New("not implemented")
}

func (f *fakeLister) PresignedUpload(context.Context, string, time.Duration) (string, error) {
	return "", errors.New("not implemented")
}

func fixedClock(date string) func() time.Time {
	t, _ := time.Parse(domain.DateFormat, date)
	return func() time.Time { return t }
}
