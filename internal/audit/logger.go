// Package audit appends one record per operation outcome to the
// append-only log table. Writes are best-effort: an audit failure is
// logged as a warning and never propagated, so observability problems
// cannot turn a successful operation into a failed one.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gmarches/s3catalog/internal/domain"
	"github.com/gmarches/s3catalog/internal/repository"
)

type Logger struct {
	repo repository.AuditRepository
	now  func() time.Time
}

func NewLogger(repo repository.AuditRepository) *Logger {
	return &Logger{repo: repo, now: time.Now}
}

// NewLoggerWithClock is used by tests that need deterministic IDs.
func NewLoggerWithClock(repo repository.AuditRepository, now func() time.Time) *Logger {
	return &Logger{repo: repo, now: now}
}

// Log writes one audit record for an operation outcome. The record ID
// combines the operation name with a nanosecond timestamp, unique per
// write by construction.
func (l *Logger) Log(ctx context.Context, operation string, details map[string]any, status string) {
	if l == nil || l.repo == nil {
		return
	}

	now := l.now()
	rec := domain.AuditRecord{
		ID:        fmt.Sprintf("%s-%s", operation, now.Format(time.RFC3339Nano)),
		Timestamp: float64(now.UnixNano()) / 1e9,
		Operation: operation,
		Details:   details,
		Status:    status,
	}

	if err := l.repo.Insert(ctx, rec); err != nil {
		log.Warn().Err(err).Str("operation", operation).Msg("audit write failed")
	}
}

// Success records a successful outcome.
func (l *Logger) Success(ctx context.Context, operation string, details map[string]any) {
	l.Log(ctx, operation, details, domain.StatusSuccess)
}

// Error records a failed outcome, carrying the error text in details.
func (l *Logger) Error(ctx context.Context, operation string, details map[string]any, err error) {
	if details == nil {
		details = map[string]any{}
	}
	details["error"] = err.Error()
	l.Log(ctx, operation, details, domain.StatusError)
}
