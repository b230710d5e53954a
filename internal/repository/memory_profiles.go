package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"caseflow-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryProfilesRepository in-memory ProfilesRepository for tests and the
// DB-disabled fallback.
type MemoryProfilesRepository struct {
	mu       sync.RWMutex
	profiles map[string]*domain.Profile // profileID -> profile
}

func NewMemoryProfilesRepository() *MemoryProfilesRepository {
	return &MemoryProfilesRepository{profiles: map[string]*domain.Profile{}}
}

var _ ProfilesRepository = (*MemoryProfilesRepository)(nil)

func (r *MemoryProfilesRepository) GetProfile(_ context.Context, profileID string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[profileID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", profileID, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryProfilesRepository) GetStaffByEmail(_ context.Context, email string) (*domain.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.profiles {
		if strings.ToLower(p.Email) == email && domain.IsStaffRole(p.Role) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryProfilesRepository) CreateProfile(_ context.Context, p *domain.Profile) (string, error) {
	if p == nil || p.Email == "" {
		return "", fmt.Errorf("email is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *p
	cp.ProfileID = uuid.NewString()
	cp.Email = strings.ToLower(p.Email)
	cp.CreatedAt = time.Now()
	r.profiles[cp.ProfileID] = &cp
	return cp.ProfileID, nil
}

func (r *MemoryProfilesRepository) UnlinkClient(_ context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.profiles {
		if p.ClientID != nil && *p.ClientID == clientID {
			p.ClientID = nil
		}
	}
	return nil
}

func (r *MemoryProfilesRepository) DeleteProfile(_ context.Context, profileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[profileID]; !ok {
		return fmt.Errorf("profile %s: %w", profileID, ErrNotFound)
	}
	delete(r.profiles, profileID)
	return nil
}
