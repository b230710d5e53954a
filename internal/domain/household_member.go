package domain

import "time"

// HouseholdMember many-per-client list satellite (household_members table).
// First/last name are split from a single full-name input at validation time.
// Replace-all lifecycle like EmergencyContact.
type HouseholdMember struct {
	MemberID string `db:"member_id"` // UUID, PRIMARY KEY
	ClientID string `db:"client_id"` // UUID, NOT NULL

	FirstName    string     `db:"first_name"`
	LastName     string     `db:"last_name"`
	Relationship string     `db:"relationship"`
	DateOfBirth  *time.Time `db:"date_of_birth"` // DATE, nullable
}

func (h *HouseholdMember) Fields() map[string]any {
	m := map[string]any{
		"first_name":   h.FirstName,
		"last_name":    h.LastName,
		"relationship": h.Relationship,
	}
	if h.DateOfBirth != nil {
		m["date_of_birth"] = h.DateOfBirth.Format("2006-01-02")
	} else {
		m["date_of_birth"] = ""
	}
	return m
}
