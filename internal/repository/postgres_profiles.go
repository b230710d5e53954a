package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"caseflow-data/internal/domain"
)

// PostgresProfilesRepository ProfilesRepository backed by PostgreSQL.
type PostgresProfilesRepository struct {
	db *sql.DB
}

func NewPostgresProfilesRepository(db *sql.DB) *PostgresProfilesRepository {
	return &PostgresProfilesRepository{db: db}
}

var _ ProfilesRepository = (*PostgresProfilesRepository)(nil)

func (r *PostgresProfilesRepository) GetProfile(ctx context.Context, profileID string) (*domain.Profile, error) {
	if profileID == "" {
		return nil, fmt.Errorf("profile_id is required")
	}

	var p domain.Profile
	var clientID sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT
			profile_id::text,
			email,
			COALESCE(full_name, '') AS full_name,
			role,
			client_id::text,
			created_at
		FROM profiles
		WHERE profile_id = $1`,
		profileID,
	).Scan(&p.ProfileID, &p.Email, &p.FullName, &p.Role, &clientID, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("profile %s: %w", profileID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if clientID.Valid {
		p.ClientID = &clientID.String
	}
	return &p, nil
}

// GetStaffByEmail case-insensitive match against staff-role accounts only.
// A portal (client-role) account with the same email does not conflict.
func (r *PostgresProfilesRepository) GetStaffByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}

	var p domain.Profile
	var clientID sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT
			profile_id::text,
			email,
			COALESCE(full_name, '') AS full_name,
			role,
			client_id::text,
			created_at
		FROM profiles
		WHERE LOWER(email) = $1
		  AND role IN ('admin', 'case_manager', 'staff', 'volunteer')
		LIMIT 1`,
		email,
	).Scan(&p.ProfileID, &p.Email, &p.FullName, &p.Role, &clientID, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up staff email: %w", err)
	}
	if clientID.Valid {
		p.ClientID = &clientID.String
	}
	return &p, nil
}

func (r *PostgresProfilesRepository) CreateProfile(ctx context.Context, p *domain.Profile) (string, error) {
	if p == nil || p.Email == "" {
		return "", fmt.Errorf("email is required")
	}

	var profileID string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO profiles (email, full_name, role, client_id)
		VALUES (LOWER($1), $2, $3, $4)
		RETURNING profile_id::text`,
		p.Email, nullEmpty(p.FullName), p.Role, nullStringPtr(p.ClientID),
	).Scan(&profileID)
	if err != nil {
		return "", fmt.Errorf("failed to create profile: %w", err)
	}
	return profileID, nil
}

func (r *PostgresProfilesRepository) UnlinkClient(ctx context.Context, clientID string) error {
	if clientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET client_id = NULL WHERE client_id = $1`, clientID,
	); err != nil {
		return fmt.Errorf("failed to unlink client: %w", err)
	}
	return nil
}

func (r *PostgresProfilesRepository) DeleteProfile(ctx context.Context, profileID string) error {
	if profileID == "" {
		return fmt.Errorf("profile_id is required")
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE profile_id = $1`, profileID)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("profile %s: %w", profileID, ErrNotFound)
	}
	return nil
}
