package domain

import (
	"strings"
	"time"
)

// Client statuses (clients.status). Anything else coerces to StatusPending.
const (
	ClientStatusActive   = "active"
	ClientStatusInactive = "inactive"
	ClientStatusPending  = "pending"
	ClientStatusArchived = "archived"
)

// NormalizeClientStatus coerces unknown values to the default instead of
// rejecting them.
func NormalizeClientStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ClientStatusActive:
		return ClientStatusActive
	case ClientStatusInactive:
		return ClientStatusInactive
	case ClientStatusArchived:
		return ClientStatusArchived
	default:
		return ClientStatusPending
	}
}

// Client row model (clients table). Anchor for all satellite tables.
type Client struct {
	// Primary key
	ClientID string `db:"client_id"` // UUID, PRIMARY KEY

	// Identity / contact
	FirstName   string     `db:"first_name"`    // VARCHAR(100), NOT NULL
	LastName    string     `db:"last_name"`     // VARCHAR(100), NOT NULL
	DateOfBirth *time.Time `db:"date_of_birth"` // DATE, nullable
	Email       string     `db:"email"`         // VARCHAR(255), nullable, stored lowercase
	Phone       string     `db:"phone"`         // VARCHAR(50), nullable

	// Address
	AddressStreet     string `db:"address_street"`
	AddressCity       string `db:"address_city"`
	AddressState      string `db:"address_state"`
	AddressPostalCode string `db:"address_postal_code"`

	// Status
	Status string `db:"status"` // VARCHAR(20), NOT NULL, DEFAULT 'pending'

	// Optional link to a portal login (at most one per client)
	PortalProfileID *string `db:"portal_profile_id"` // UUID, nullable, UNIQUE

	// Administrative assignment; staff-editable only
	CaseManagerID *string `db:"case_manager_id"` // UUID, nullable

	// Intake completion stamp; set once, never re-fired
	IntakeCompletedAt *time.Time `db:"intake_completed_at"` // TIMESTAMPTZ, nullable

	CreatedBy string    `db:"created_by"` // UUID of the creating actor
	CreatedAt time.Time `db:"created_at"` // TIMESTAMPTZ, cursor key for pagination
	UpdatedAt time.Time `db:"updated_at"`
}

// Fields returns the auditable column map. Times are rendered as dates so the
// diff compares by value.
func (c *Client) Fields() map[string]any {
	m := map[string]any{
		"first_name":          c.FirstName,
		"last_name":           c.LastName,
		"email":               c.Email,
		"phone":               c.Phone,
		"address_street":      c.AddressStreet,
		"address_city":        c.AddressCity,
		"address_state":       c.AddressState,
		"address_postal_code": c.AddressPostalCode,
		"status":              c.Status,
	}
	if c.DateOfBirth != nil {
		m["date_of_birth"] = c.DateOfBirth.Format("2006-01-02")
	} else {
		m["date_of_birth"] = ""
	}
	if c.CaseManagerID != nil {
		m["case_manager_id"] = *c.CaseManagerID
	} else {
		m["case_manager_id"] = ""
	}
	return m
}
