package repository

import (
	"context"

	"caseflow-data/internal/domain"
)

// ProfilesRepository login accounts (staff and client portal identities).
type ProfilesRepository interface {
	GetProfile(ctx context.Context, profileID string) (*domain.Profile, error)
	// GetStaffByEmail matches staff-role accounts case-insensitively.
	// Returns (nil, nil) when no staff account has the email.
	GetStaffByEmail(ctx context.Context, email string) (*domain.Profile, error)
	CreateProfile(ctx context.Context, p *domain.Profile) (string, error)
	// UnlinkClient clears portal links pointing at the client (used by the
	// cascade delete).
	UnlinkClient(ctx context.Context, clientID string) error
	DeleteProfile(ctx context.Context, profileID string) error
}
