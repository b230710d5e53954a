package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"caseflow-data/internal/domain"
)

// PostgresAuditRepository AuditRepository backed by PostgreSQL. Append-only;
// nothing in the service ever updates or deletes audit rows.
type PostgresAuditRepository struct {
	db *sql.DB
}

func NewPostgresAuditRepository(db *sql.DB) *PostgresAuditRepository {
	return &PostgresAuditRepository{db: db}
}

var _ AuditRepository = (*PostgresAuditRepository)(nil)

func (r *PostgresAuditRepository) Append(ctx context.Context, e *domain.AuditLogEntry) (string, error) {
	if e == nil || e.TableName == "" || e.RecordID == "" {
		return "", fmt.Errorf("table_name and record_id are required")
	}

	oldValues := e.OldValues
	if len(oldValues) == 0 {
		oldValues = json.RawMessage("{}")
	}
	newValues := e.NewValues
	if len(newValues) == 0 {
		newValues = json.RawMessage("{}")
	}

	var entryID string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO audit_log (actor_id, action, table_name, record_id, old_values, new_values)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb)
		RETURNING entry_id::text`,
		nullEmpty(e.ActorID), e.Action, e.TableName, e.RecordID,
		string(oldValues), string(newValues),
	).Scan(&entryID)
	if err != nil {
		return "", fmt.Errorf("failed to append audit entry: %w", err)
	}
	return entryID, nil
}

func (r *PostgresAuditRepository) ListByRecord(ctx context.Context, recordID string, limit int) ([]*domain.AuditLogEntry, error) {
	if recordID == "" {
		return nil, fmt.Errorf("record_id is required")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			entry_id::text,
			COALESCE(actor_id::text, '') AS actor_id,
			action,
			table_name,
			record_id::text,
			old_values::text,
			new_values::text,
			created_at
		FROM audit_log
		WHERE record_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		recordID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	out := []*domain.AuditLogEntry{}
	for rows.Next() {
		var e domain.AuditLogEntry
		var oldValues, newValues string
		if err := rows.Scan(&e.EntryID, &e.ActorID, &e.Action, &e.TableName, &e.RecordID, &oldValues, &newValues, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.OldValues = json.RawMessage(oldValues)
		e.NewValues = json.RawMessage(newValues)
		out = append(out, &e)
	}
	return out, rows.Err()
}
