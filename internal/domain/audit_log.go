package domain

import (
	"encoding/json"
	"time"
)

// AuditLogEntry append-only change record (audit_log table). Written only
// when a save actually changed something (non-empty diff).
type AuditLogEntry struct {
	EntryID   string          `db:"entry_id"`   // UUID, PRIMARY KEY
	ActorID   string          `db:"actor_id"`   // UUID of the acting identity
	Action    string          `db:"action"`     // 'create' | 'update' | 'delete'
	TableName string          `db:"table_name"` // affected table
	RecordID  string          `db:"record_id"`  // affected row (client id for list satellites)
	OldValues json.RawMessage `db:"old_values"` // JSONB, changed keys only
	NewValues json.RawMessage `db:"new_values"` // JSONB, changed keys only
	CreatedAt time.Time       `db:"created_at"`
}

const (
	AuditActionCreate = "create"
	AuditActionUpdate = "update"
	AuditActionDelete = "delete"
)
