package transform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gmarches/s3catalog/internal/domain"
	"github.com/gmarches/s3catalog/internal/storage"
)

// memStore is an in-memory ObjectStorage for transform tests.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
}

func (m *memStore) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

func (m *memStore) ListObjects(_ context.Context, _ string, fn func(storage.ObjectInfo) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, data := range m.objects {
		if err := fn(storage.ObjectInfo{Key: key, Size: int64(len(data)), LastModified: time.Now()}); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) GetObject(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.get(key)
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) PutObject(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.put(key, data)
	return nil
}

func (m *memStore) PresignedUpload(context.Context, string, time.Duration) (string, error) {
	return "", errors.New("not implemented")
}

// memAudit mirrors the audit repository for asserting outcomes.
type memAudit struct {
	mu      sync.Mutex
	records []domain.AuditRecord
}

func (m *memAudit) Insert(_ context.Context, rec domain.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memAudit) all() []domain.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AuditRecord(nil), m.records...)
}
