package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmarches/s3catalog/internal/api"
	"github.com/gmarches/s3catalog/internal/audit"
	"github.com/gmarches/s3catalog/internal/domain"
	"github.com/gmarches/s3catalog/internal/service"
	"github.com/gmarches/s3catalog/internal/storage"
)

type stubCatalog struct {
	entries []domain.CatalogEntry
}

func (s *stubCatalog) UpsertEntries(_ context.Context, entries []domain.CatalogEntry) error {
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *stubCatalog) ListRecent(context.Context, string, int) ([]domain.CatalogEntry, error) {
	return s.entries, nil
}

func (s *stubCatalog) SearchByPath(context.Context, string, int) ([]domain.CatalogEntry, error) {
	return s.entries, nil
}

type stubAudit struct{}

func (stubAudit) Insert(context.Context, domain.AuditRecord) error { return nil }

type stubStore struct {
	objects []storage.ObjectInfo
}

func (s *stubStore) ListObjects(_ context.Context, _ string, fn func(storage.ObjectInfo) error) error {
	for _, obj := range s.objects {
		if err := fn(obj); err != nil {
			return err
		}
	}
	return nil
}

func (s *stubStore) GetObject(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (s *stubStore) PutObject(context.Context, string, io.Reader, int64, string) error {
	return errors.New("not implemented")
}

func (s *stubStore) PresignedUpload(_ context.Context, key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://store.local/%s?ttl=%d", key, int(expiry.Seconds())), nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *stubCatalog) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog := &stubCatalog{}
	auditLog := audit.NewLogger(stubAudit{})
	store := &stubStore{objects: []storage.ObjectInfo{
		{Key: "a/1.txt", Size: 10, LastModified: time.Now(), ETag: "e1"},
	}}

	services := &api.Services{
		Scanner:   service.NewScanner(store, catalog, auditLog, nil),
		Directory: service.NewDirectory(catalog, auditLog, nil),
		Grantor:   service.NewGrantor(store, auditLog, "test-bucket"),
	}
	return api.NewRouter(services, []string{"*"}), catalog
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doRequest(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListFilesDefaults(t *testing.T) {
	router, catalog := newTestRouter(t)
	catalog.entries = []domain.CatalogEntry{
		{Path: "a/1.txt", ScanDate: time.Now().Format(domain.DateFormat), SizeBytes: 10},
	}

	w := doRequest(t, router, http.MethodGet, "/api/v1/files", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Files      []domain.CatalogEntry `json:"files"`
		Count      int                   `json:"count"`
		CutoffDate string                `json:"cutoff_date"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.NotEmpty(t, resp.CutoffDate)
}

func TestListFilesRejectsBadParams(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{
		"/api/v1/files?days=0",
		"/api/v1/files?days=-1",
		"/api/v1/files?days=abc",
		"/api/v1/files?limit=0",
		"/api/v1/files?limit=oops",
	} {
		w := doRequest(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp, "error")
	}
}

func TestSearchFilesRequiresName(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/v1/files/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/files/search?name=report", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPresignUpload(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/presign", map[string]any{
		"filename":   "a.txt",
		"expires_in": 60,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var grant domain.UploadGrant
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &grant))
	assert.Equal(t, "a.txt", grant.Filename)
	assert.Equal(t, "test-bucket", grant.Bucket)
	assert.Equal(t, 60, grant.ExpiresIn)
	assert.NotEmpty(t, grant.PresignedURL)
}

func TestPresignUploadRequiresFilename(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/presign", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTriggerScan(t *testing.T) {
	router, catalog := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/scan", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		FilesProcessed int64 `json:"files_processed"`
		TotalSize      int64 `json:"total_size"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.FilesProcessed)
	assert.Equal(t, int64(10), resp.TotalSize)
	assert.Len(t, catalog.entries, 1)
}
