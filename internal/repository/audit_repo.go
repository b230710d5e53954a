package repository

import (
	"context"

	"caseflow-data/internal/domain"
)

// AuditRepository append-only change log.
type AuditRepository interface {
	Append(ctx context.Context, e *domain.AuditLogEntry) (string, error)
	ListByRecord(ctx context.Context, recordID string, limit int) ([]*domain.AuditLogEntry, error)
}
