package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"caseflow-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryAuditRepository in-memory AuditRepository.
type MemoryAuditRepository struct {
	mu      sync.RWMutex
	entries []*domain.AuditLogEntry
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

var _ AuditRepository = (*MemoryAuditRepository)(nil)

func (r *MemoryAuditRepository) Append(_ context.Context, e *domain.AuditLogEntry) (string, error) {
	if e == nil || e.TableName == "" || e.RecordID == "" {
		return "", fmt.Errorf("table_name and record_id are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *e
	cp.EntryID = uuid.NewString()
	cp.CreatedAt = time.Now()
	if len(cp.OldValues) == 0 {
		cp.OldValues = json.RawMessage("{}")
	}
	if len(cp.NewValues) == 0 {
		cp.NewValues = json.RawMessage("{}")
	}
	r.entries = append(r.entries, &cp)
	return cp.EntryID, nil
}

func (r *MemoryAuditRepository) ListByRecord(_ context.Context, recordID string, limit int) ([]*domain.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.AuditLogEntry{}
	// newest first
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].RecordID == recordID {
			cp := *r.entries[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// All returns every entry in append order. Test helper.
func (r *MemoryAuditRepository) All() []*domain.AuditLogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.AuditLogEntry, 0, len(r.entries))
	for _, e := range r.entries {
		cp := *e
		out = append(out, &cp)
	}
	return out
}
