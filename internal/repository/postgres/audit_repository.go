package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/gmarches/s3catalog/internal/domain"
	"github.com/gmarches/s3catalog/internal/repository"
)

type auditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Insert(ctx context.Context, rec domain.AuditRecord) error {
	details := rec.Details
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("error encoding audit details: %w", err)
	}

	query := `
		INSERT INTO audit_logs (id, ts, operation, details, status)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query, rec.ID, rec.Timestamp, rec.Operation, payload, rec.Status); err != nil {
		return fmt.Errorf("error inserting audit record: %w", err)
	}
	return nil
}
