package repository

import (
	"context"
	"errors"
	"time"

	"caseflow-data/internal/domain"
)

// ErrNotFound is returned when a lookup or targeted update matches no row.
var ErrNotFound = errors.New("record not found")

// ClientsRepository data access for the client record and its satellite
// tables. The repository layer only moves rows; pipeline decisions (insert
// vs. update, diffing, best-effort policy) live in the service layer.
type ClientsRepository interface {
	// ========== clients ==========
	GetClient(ctx context.Context, clientID string) (*domain.Client, error)
	// ListClients returns up to limit rows ordered by created_at DESC.
	// Callers over-fetch one row to compute hasMore.
	ListClients(ctx context.Context, filters ClientFilters, limit int) ([]*domain.Client, error)
	CreateClient(ctx context.Context, client *domain.Client) (string, error)
	// UpdateClient applies only whitelisted columns from fields; the caller
	// decides the editable subset (staff vs. self-service path).
	UpdateClient(ctx context.Context, clientID string, fields map[string]any) error
	// SetIntakeCompleted stamps intake_completed_at only if it is still null.
	// Returns whether this call performed the stamp.
	SetIntakeCompleted(ctx context.Context, clientID string, at time.Time) (bool, error)
	// DeleteClient removes the client and all satellite rows in dependency
	// order. Audit entries are retained.
	DeleteClient(ctx context.Context, clientID string) error

	// ========== case_management (1:1, lazy create) ==========
	// Get* for one-to-one satellites return (nil, nil) when no row exists.
	GetCaseManagement(ctx context.Context, clientID string) (*domain.CaseManagement, error)
	CreateCaseManagement(ctx context.Context, cm *domain.CaseManagement) (string, error)
	UpdateCaseManagement(ctx context.Context, clientID string, cm *domain.CaseManagement) error

	// ========== demographics (1:1, lazy create) ==========
	GetDemographics(ctx context.Context, clientID string) (*domain.Demographics, error)
	CreateDemographics(ctx context.Context, d *domain.Demographics) (string, error)
	UpdateDemographics(ctx context.Context, clientID string, d *domain.Demographics) error

	// ========== emergency_contacts (list, replace-all) ==========
	GetEmergencyContacts(ctx context.Context, clientID string) ([]*domain.EmergencyContact, error)
	// ReplaceEmergencyContacts deletes every row for the client and inserts
	// the new set atomically. Row ids are not preserved across saves.
	ReplaceEmergencyContacts(ctx context.Context, clientID string, contacts []*domain.EmergencyContact) error

	// ========== household_members (list, replace-all) ==========
	GetHouseholdMembers(ctx context.Context, clientID string) ([]*domain.HouseholdMember, error)
	ReplaceHouseholdMembers(ctx context.Context, clientID string, members []*domain.HouseholdMember) error
}

// ClientFilters list query filters.
type ClientFilters struct {
	Status string     // exact status match; empty = all
	Cursor *time.Time // created_at of the last row of the previous page
	Search string     // substring match on first/last name or email
}
