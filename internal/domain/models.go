package domain

import "time"

// DateFormat is the calendar-date layout used for scan dates. ISO dates
// sort lexicographically in chronological order, which the scan_date
// index relies on.
const DateFormat = "2006-01-02"

// Operation names recorded in the audit log.
const (
	OpScan     = "scan"
	OpList     = "list"
	OpSearch   = "search"
	OpPresign  = "presign"
	OpConvert  = "convert"
	OpExtract  = "extract"
	OpTransfer = "transfer"
	OpLoad     = "load"
)

// Audit outcome statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// CatalogEntry is one inventoried object as of a given scan. Entries for
// the same path on different scan dates coexist; the catalog is a time
// series of inventories, not a mutable current-state table.
type CatalogEntry struct {
	Path         string    `db:"path" json:"path"`
	ScanDate     string    `db:"scan_date" json:"scan_date"`
	SizeBytes    int64     `db:"size_bytes" json:"size_bytes"`
	LastModified time.Time `db:"last_modified" json:"last_modified"`
	ETag         string    `db:"etag" json:"etag"`
}

// AuditRecord is one append-only row per operation invocation. The ID
// embeds a nanosecond clock reading, which makes it unique per write;
// Timestamp is epoch seconds and is only used for ordering.
type AuditRecord struct {
	ID        string         `db:"id"`
	Timestamp float64        `db:"ts"`
	Operation string         `db:"operation"`
	Details   map[string]any `db:"-"`
	Status    string         `db:"status"`
}

// ScanResult summarizes one completed bucket scan.
type ScanResult struct {
	ScanDate       string `json:"scan_date"`
	FilesProcessed int64  `json:"files_processed"`
	TotalSizeBytes int64  `json:"total_size"`
}

// FileListing is a directory query result.
type FileListing struct {
	Files      []CatalogEntry `json:"files"`
	CutoffDate string         `json:"cutoff_date,omitempty"`
	SearchName string         `json:"search_name,omitempty"`
}

// UploadGrant is a short-lived, write-scoped authorization for one
// object path.
type UploadGrant struct {
	PresignedURL string `json:"presigned_url"`
	Filename     string `json:"filename"`
	Bucket       string `json:"bucket"`
	ExpiresIn    int    `json:"expires_in"`
}
