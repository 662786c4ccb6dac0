package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gmarches/s3catalog/internal/service"
)

type CatalogHandler struct {
	scanner   *service.Scanner
	directory *service.Directory
	grantor   *service.Grantor
}

func NewCatalogHandler(scanner *service.Scanner, directory *service.Directory, grantor *service.Grantor) *CatalogHandler {
	return &CatalogHandler{scanner: scanner, directory: directory, grantor: grantor}
}

// TriggerScan runs a full bucket scan on demand. The scheduled runner
// in cmd/scanner goes through the same service path.
func (h *CatalogHandler) TriggerScan(c *gin.Context) {
	result, err := h.scanner.Scan(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "scan completed successfully",
		"scan_date":       result.ScanDate,
		"files_processed": result.FilesProcessed,
		"total_size":      result.TotalSizeBytes,
	})
}

// ListFiles returns catalog entries scanned in the last `days` days.
func (h *CatalogHandler) ListFiles(c *gin.Context) {
	// Absent parameters take the documented defaults; non-numeric
	// values parse to 0 and fail the positive-integer validation.
	days := service.DefaultListDays
	if v := c.Query("days"); v != "" {
		days, _ = strconv.Atoi(v)
	}
	limit := service.DefaultListLimit
	if v := c.Query("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	listing, err := h.directory.ListRecent(c.Request.Context(), days, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"files":       listing.Files,
		"count":       len(listing.Files),
		"cutoff_date": listing.CutoffDate,
	})
}

// SearchFiles returns catalog entries whose path contains `name`.
func (h *CatalogHandler) SearchFiles(c *gin.Context) {
	name := c.Query("name")
	limit := service.DefaultSearchLimit
	if v := c.Query("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	listing, err := h.directory.SearchByName(c.Request.Context(), name, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"files":       listing.Files,
		"count":       len(listing.Files),
		"search_name": listing.SearchName,
	})
}

type presignRequest struct {
	Filename  string `json:"filename"`
	ExpiresIn *int   `json:"expires_in"`
}

// PresignUpload issues a time-limited upload authorization for one key.
func (h *CatalogHandler) PresignUpload(c *gin.Context) {
	var req presignRequest
	// A malformed body falls through with zero values and is rejected
	// by the service's validation.
	_ = c.ShouldBindJSON(&req)

	ttl := service.DefaultGrantTTLSeconds
	if req.ExpiresIn != nil {
		ttl = *req.ExpiresIn
	}

	grant, err := h.grantor.IssueUploadGrant(c.Request.Context(), req.Filename, ttl)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, grant)
}
