package domain

// EmergencyContact many-per-client list satellite (emergency_contacts table).
// The whole set is replaced on every intake save; row ids are not stable
// across saves.
type EmergencyContact struct {
	ContactID string `db:"contact_id"` // UUID, PRIMARY KEY
	ClientID  string `db:"client_id"`  // UUID, NOT NULL

	Name         string `db:"name"`         // VARCHAR(200), NOT NULL
	Relationship string `db:"relationship"` // VARCHAR(100)
	Phone        string `db:"phone"`        // VARCHAR(50), NOT NULL
	Email        string `db:"email"`        // VARCHAR(255), optional
}

// Fields excludes the row id: list satellites are diffed by content, and ids
// churn on every save.
func (e *EmergencyContact) Fields() map[string]any {
	return map[string]any{
		"name":         e.Name,
		"relationship": e.Relationship,
		"phone":        e.Phone,
		"email":        e.Email,
	}
}
