package domain

import "time"

// Roles (profiles.role). Everything except RoleClient counts as staff.
const (
	RoleAdmin       = "admin"
	RoleCaseManager = "case_manager"
	RoleStaff       = "staff"
	RoleVolunteer   = "volunteer"
	RoleClient      = "client"
)

// IsStaffRole reports whether the role may act on other people's records.
func IsStaffRole(role string) bool {
	switch role {
	case RoleAdmin, RoleCaseManager, RoleStaff, RoleVolunteer:
		return true
	}
	return false
}

// Profile login account (profiles table). Staff accounts have no linked
// client; portal accounts link to exactly one client row.
type Profile struct {
	ProfileID string  `db:"profile_id"` // UUID, PRIMARY KEY
	Email     string  `db:"email"`      // VARCHAR(255), NOT NULL, stored lowercase
	FullName  string  `db:"full_name"`  // VARCHAR(200)
	Role      string  `db:"role"`       // VARCHAR(20), NOT NULL
	ClientID  *string `db:"client_id"`  // UUID, nullable (portal link)

	CreatedAt time.Time `db:"created_at"`
}
