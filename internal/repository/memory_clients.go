package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"caseflow-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryClientsRepository in-memory ClientsRepository. Used by unit tests and
// as the dev fallback when the DB is unavailable (keeps admin pages working
// with plain `go run`).
type MemoryClientsRepository struct {
	mu sync.RWMutex

	clients        map[string]*domain.Client           // clientID -> client
	caseManagement map[string]*domain.CaseManagement   // clientID -> row
	demographics   map[string]*domain.Demographics     // clientID -> row
	contacts       map[string][]*domain.EmergencyContact // clientID -> rows
	members        map[string][]*domain.HouseholdMember  // clientID -> rows

	lastCreated time.Time // keeps created_at strictly increasing for cursor tests
}

func NewMemoryClientsRepository() *MemoryClientsRepository {
	return &MemoryClientsRepository{
		clients:        map[string]*domain.Client{},
		caseManagement: map[string]*domain.CaseManagement{},
		demographics:   map[string]*domain.Demographics{},
		contacts:       map[string][]*domain.EmergencyContact{},
		members:        map[string][]*domain.HouseholdMember{},
	}
}

var _ ClientsRepository = (*MemoryClientsRepository)(nil)

func (r *MemoryClientsRepository) now() time.Time {
	t := time.Now()
	if !t.After(r.lastCreated) {
		t = r.lastCreated.Add(time.Microsecond)
	}
	r.lastCreated = t
	return t
}

func copyClient(c *domain.Client) *domain.Client {
	cp := *c
	return &cp
}

// ---- clients ----

func (r *MemoryClientsRepository) GetClient(_ context.Context, clientID string) (*domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("client %s: %w", clientID, ErrNotFound)
	}
	return copyClient(c), nil
}

func (r *MemoryClientsRepository) ListClients(_ context.Context, filters ClientFilters, limit int) ([]*domain.Client, error) {
	if limit <= 0 {
		limit = 20
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.Client, 0, len(r.clients))
	for _, c := range r.clients {
		if filters.Status != "" && c.Status != filters.Status {
			continue
		}
		if filters.Cursor != nil && !c.CreatedAt.Before(*filters.Cursor) {
			continue
		}
		if filters.Search != "" {
			needle := strings.ToLower(filters.Search)
			if !strings.Contains(strings.ToLower(c.FirstName), needle) &&
				!strings.Contains(strings.ToLower(c.LastName), needle) &&
				!strings.Contains(strings.ToLower(c.Email), needle) {
				continue
			}
		}
		all = append(all, copyClient(c))
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ClientID > all[j].ClientID
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryClientsRepository) CreateClient(_ context.Context, client *domain.Client) (string, error) {
	if client == nil {
		return "", fmt.Errorf("client is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *client
	cp.ClientID = uuid.NewString()
	cp.CreatedAt = r.now()
	cp.UpdatedAt = cp.CreatedAt
	r.clients[cp.ClientID] = &cp
	return cp.ClientID, nil
}

func (r *MemoryClientsRepository) UpdateClient(_ context.Context, clientID string, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[clientID]
	if !ok {
		return fmt.Errorf("client %s: %w", clientID, ErrNotFound)
	}

	for col, val := range fields {
		switch col {
		case "first_name":
			c.FirstName, _ = val.(string)
		case "last_name":
			c.LastName, _ = val.(string)
		case "email":
			c.Email, _ = val.(string)
		case "phone":
			c.Phone, _ = val.(string)
		case "address_street":
			c.AddressStreet, _ = val.(string)
		case "address_city":
			c.AddressCity, _ = val.(string)
		case "address_state":
			c.AddressState, _ = val.(string)
		case "address_postal_code":
			c.AddressPostalCode, _ = val.(string)
		case "status":
			c.Status, _ = val.(string)
		case "date_of_birth":
			switch v := val.(type) {
			case time.Time:
				t := v
				c.DateOfBirth = &t
			case string:
				if v == "" {
					c.DateOfBirth = nil
				} else if t, err := time.Parse("2006-01-02", v); err == nil {
					c.DateOfBirth = &t
				}
			case nil:
				c.DateOfBirth = nil
			}
		case "case_manager_id":
			if s, _ := val.(string); s == "" {
				c.CaseManagerID = nil
			} else {
				s := s
				c.CaseManagerID = &s
			}
		case "portal_profile_id":
			if s, _ := val.(string); s == "" {
				c.PortalProfileID = nil
			} else {
				s := s
				c.PortalProfileID = &s
			}
		}
	}
	c.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryClientsRepository) SetIntakeCompleted(_ context.Context, clientID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[clientID]
	if !ok {
		return false, fmt.Errorf("client %s: %w", clientID, ErrNotFound)
	}
	if c.IntakeCompletedAt != nil {
		return false, nil
	}
	t := at
	c.IntakeCompletedAt = &t
	c.UpdatedAt = time.Now()
	return true, nil
}

func (r *MemoryClientsRepository) DeleteClient(_ context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[clientID]; !ok {
		return fmt.Errorf("client %s: %w", clientID, ErrNotFound)
	}
	delete(r.contacts, clientID)
	delete(r.members, clientID)
	delete(r.demographics, clientID)
	delete(r.caseManagement, clientID)
	delete(r.clients, clientID)
	return nil
}

// ---- case_management ----

func (r *MemoryClientsRepository) GetCaseManagement(_ context.Context, clientID string) (*domain.CaseManagement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cm, ok := r.caseManagement[clientID]
	if !ok {
		return nil, nil
	}
	cp := *cm
	return &cp, nil
}

func (r *MemoryClientsRepository) CreateCaseManagement(_ context.Context, cm *domain.CaseManagement) (string, error) {
	if cm == nil || cm.ClientID == "" {
		return "", fmt.Errorf("client_id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *cm
	cp.CaseID = uuid.NewString()
	cp.UpdatedAt = time.Now()
	r.caseManagement[cp.ClientID] = &cp
	return cp.CaseID, nil
}

func (r *MemoryClientsRepository) UpdateCaseManagement(_ context.Context, clientID string, cm *domain.CaseManagement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.caseManagement[clientID]
	if !ok {
		return fmt.Errorf("case management for client %s: %w", clientID, ErrNotFound)
	}
	cp := *cm
	cp.CaseID = existing.CaseID
	cp.ClientID = clientID
	cp.UpdatedAt = time.Now()
	r.caseManagement[clientID] = &cp
	return nil
}

// ---- demographics ----

func (r *MemoryClientsRepository) GetDemographics(_ context.Context, clientID string) (*domain.Demographics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.demographics[clientID]
	if !ok {
		return nil, nil
	}
	cp := *d
	cp.Race = append([]string(nil), d.Race...)
	return &cp, nil
}

func (r *MemoryClientsRepository) CreateDemographics(_ context.Context, d *domain.Demographics) (string, error) {
	if d == nil || d.ClientID == "" {
		return "", fmt.Errorf("client_id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *d
	cp.DemographicsID = uuid.NewString()
	cp.Race = append([]string(nil), d.Race...)
	cp.UpdatedAt = time.Now()
	r.demographics[cp.ClientID] = &cp
	return cp.DemographicsID, nil
}

func (r *MemoryClientsRepository) UpdateDemographics(_ context.Context, clientID string, d *domain.Demographics) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.demographics[clientID]
	if !ok {
		return fmt.Errorf("demographics for client %s: %w", clientID, ErrNotFound)
	}
	cp := *d
	cp.DemographicsID = existing.DemographicsID
	cp.ClientID = clientID
	cp.Race = append([]string(nil), d.Race...)
	cp.UpdatedAt = time.Now()
	r.demographics[clientID] = &cp
	return nil
}

// ---- emergency_contacts ----

func (r *MemoryClientsRepository) GetEmergencyContacts(_ context.Context, clientID string) ([]*domain.EmergencyContact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.EmergencyContact, 0, len(r.contacts[clientID]))
	for _, c := range r.contacts[clientID] {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MemoryClientsRepository) ReplaceEmergencyContacts(_ context.Context, clientID string, contacts []*domain.EmergencyContact) error {
	if clientID == "" {
		return fmt.Errorf("client_id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fresh := make([]*domain.EmergencyContact, 0, len(contacts))
	for _, c := range contacts {
		cp := *c
		cp.ContactID = uuid.NewString() // ids churn on every save, same as the DB path
		cp.ClientID = clientID
		fresh = append(fresh, &cp)
	}
	r.contacts[clientID] = fresh
	return nil
}

// ---- household_members ----

func (r *MemoryClientsRepository) GetHouseholdMembers(_ context.Context, clientID string) ([]*domain.HouseholdMember, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.HouseholdMember, 0, len(r.members[clientID]))
	for _, m := range r.members[clientID] {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MemoryClientsRepository) ReplaceHouseholdMembers(_ context.Context, clientID string, members []*domain.HouseholdMember) error {
	if clientID == "" {
		return fmt.Errorf("client_id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fresh := make([]*domain.HouseholdMember, 0, len(members))
	for _, m := range members {
		cp := *m
		cp.MemberID = uuid.NewString()
		cp.ClientID = clientID
		fresh = append(fresh, &cp)
	}
	r.members[clientID] = fresh
	return nil
}
