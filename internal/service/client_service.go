package service

import (
	"context"
	"fmt"
	"time"

	"caseflow-data/internal/domain"
	"caseflow-data/internal/repository"
	"caseflow-data/internal/store"

	"go.uber.org/zap"
)

// defaultPageSize list page size when the caller does not pass one.
const defaultPageSize = 25

// maxPageSize hard ceiling on a single list page.
const maxPageSize = 100

// cursorLayout wire format of the opaque list cursor (created_at of the last
// row on the previous page).
const cursorLayout = time.RFC3339Nano

// ClientService read/delete surface over client records.
type ClientService interface {
	GetClient(ctx context.Context, actorID, clientID string) (*ClientView, error)
	GetClientFullData(ctx context.Context, actorID, clientID string) (*ClientFullData, error)
	ListClients(ctx context.Context, req ListClientsRequest) (*ListClientsResponse, error)
	DeleteClient(ctx context.Context, actorID, clientID string) error
	ListAuditTrail(ctx context.Context, actorID, recordID string, limit int) ([]*domain.AuditLogEntry, error)
}

type clientService struct {
	clients  repository.ClientsRepository
	profiles repository.ProfilesRepository
	tasks    repository.TasksRepository
	audit    repository.AuditRepository
	cache    *store.Cache
	feed     store.Feed
	logger   *zap.Logger
}

func NewClientService(
	clients repository.ClientsRepository,
	profiles repository.ProfilesRepository,
	tasks repository.TasksRepository,
	audit repository.AuditRepository,
	cache *store.Cache,
	feed store.Feed,
	logger *zap.Logger,
) ClientService {
	return &clientService{
		clients:  clients,
		profiles: profiles,
		tasks:    tasks,
		audit:    audit,
		cache:    cache,
		feed:     feed,
		logger:   logger,
	}
}

var _ ClientService = (*clientService)(nil)

// ============================================
// DTOs
// ============================================

// ClientView API projection of a client row.
type ClientView struct {
	ClientID          string `json:"client_id"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	DateOfBirth       string `json:"date_of_birth,omitempty"` // YYYY-MM-DD
	Email             string `json:"email,omitempty"`
	Phone             string `json:"phone,omitempty"`
	AddressStreet     string `json:"address_street,omitempty"`
	AddressCity       string `json:"address_city,omitempty"`
	AddressState      string `json:"address_state,omitempty"`
	AddressPostalCode string `json:"address_postal_code,omitempty"`
	Status            string `json:"status"`
	CaseManagerID     string `json:"case_manager_id,omitempty"`
	IntakeCompletedAt *int64 `json:"intake_completed_at,omitempty"` // unix seconds
	CreatedAt         int64  `json:"created_at"`                    // unix seconds
	UpdatedAt         int64  `json:"updated_at"`
}

// ClientFullData client row plus every satellite, the shape the intake form
// loads to pre-fill itself.
type ClientFullData struct {
	Client            *ClientView               `json:"client"`
	CaseManagement    *domain.CaseManagement    `json:"case_management,omitempty"`
	Demographics      *domain.Demographics      `json:"demographics,omitempty"`
	EmergencyContacts []*domain.EmergencyContact `json:"emergency_contacts"`
	HouseholdMembers  []*domain.HouseholdMember  `json:"household_members"`
	Tasks             []*domain.Task             `json:"tasks"`
}

// ListClientsRequest staff roster query.
type ListClientsRequest struct {
	ActorID string
	Status  string // optional filter
	Search  string // optional name/email substring
	Cursor  string // opaque, from a previous response
	Limit   int
}

// ListClientsResponse one roster page.
type ListClientsResponse struct {
	Clients    []*ClientView `json:"clients"`
	NextCursor string        `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

func toClientView(c *domain.Client) *ClientView {
	v := &ClientView{
		ClientID:          c.ClientID,
		FirstName:         c.FirstName,
		LastName:          c.LastName,
		Email:             c.Email,
		Phone:             c.Phone,
		AddressStreet:     c.AddressStreet,
		AddressCity:       c.AddressCity,
		AddressState:      c.AddressState,
		AddressPostalCode: c.AddressPostalCode,
		Status:            c.Status,
		CreatedAt:         c.CreatedAt.Unix(),
		UpdatedAt:         c.UpdatedAt.Unix(),
	}
	if c.DateOfBirth != nil {
		v.DateOfBirth = c.DateOfBirth.Format(dateLayout)
	}
	if c.CaseManagerID != nil {
		v.CaseManagerID = *c.CaseManagerID
	}
	if c.IntakeCompletedAt != nil {
		ts := c.IntakeCompletedAt.Unix()
		v.IntakeCompletedAt = &ts
	}
	return v
}

// ============================================
// Reads
// ============================================

func (s *clientService) GetClient(ctx context.Context, actorID, clientID string) (*ClientView, error) {
	actor, isStaff, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !isStaff && !ownsClient(actor, clientID) {
		return nil, fmt.Errorf("%w: cannot read client %s", ErrForbidden, clientID)
	}

	client, err := s.clients.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return toClientView(client), nil
}

func (s *clientService) GetClientFullData(ctx context.Context, actorID, clientID string) (*ClientFullData, error) {
	actor, isStaff, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !isStaff && !ownsClient(actor, clientID) {
		return nil, fmt.Errorf("%w: cannot read client %s", ErrForbidden, clientID)
	}

	client, err := s.clients.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	out := &ClientFullData{Client: toClientView(client)}

	// Satellites may legitimately be absent on a half-finished intake.
	if out.CaseManagement, err = s.clients.GetCaseManagement(ctx, clientID); err != nil {
		return nil, err
	}
	if out.Demographics, err = s.clients.GetDemographics(ctx, clientID); err != nil {
		return nil, err
	}
	if out.EmergencyContacts, err = s.clients.GetEmergencyContacts(ctx, clientID); err != nil {
		return nil, err
	}
	if out.HouseholdMembers, err = s.clients.GetHouseholdMembers(ctx, clientID); err != nil {
		return nil, err
	}
	if out.Tasks, err = s.tasks.ListTasks(ctx, clientID); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *clientService) ListClients(ctx context.Context, req ListClientsRequest) (*ListClientsResponse, error) {
	_, isStaff, err := s.requireActor(ctx, req.ActorID)
	if err != nil {
		return nil, err
	}
	if !isStaff {
		return nil, fmt.Errorf("%w: roster is staff-only", ErrForbidden)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	// Only the unfiltered-by-search first page is cached; deeper pages and
	// search results are too sparse to be worth keeping.
	cacheable := s.cache != nil && req.Cursor == "" && req.Search == ""
	scope := fmt.Sprintf("list:%s:%d", req.Status, limit)
	if cacheable {
		var cached ListClientsResponse
		if s.cache.Get(ctx, "clients", scope, &cached) {
			return &cached, nil
		}
	}

	filters := repository.ClientFilters{Status: req.Status, Search: req.Search}
	if req.Cursor != "" {
		t, err := time.Parse(cursorLayout, req.Cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed cursor", ErrValidation)
		}
		filters.Cursor = &t
	}

	// Over-fetch one row to learn whether another page exists.
	rows, err := s.clients.ListClients(ctx, filters, limit+1)
	if err != nil {
		return nil, err
	}

	resp := &ListClientsResponse{Clients: make([]*ClientView, 0, limit)}
	if len(rows) > limit {
		resp.HasMore = true
		rows = rows[:limit]
	}
	for _, c := range rows {
		resp.Clients = append(resp.Clients, toClientView(c))
	}
	if resp.HasMore && len(rows) > 0 {
		resp.NextCursor = rows[len(rows)-1].CreatedAt.Format(cursorLayout)
	}

	if cacheable {
		if err := s.cache.Set(ctx, "clients", scope, resp); err != nil {
			s.logger.Warn("failed to cache client list", zap.Error(err))
		}
	}
	return resp, nil
}

func (s *clientService) ListAuditTrail(ctx context.Context, actorID, recordID string, limit int) ([]*domain.AuditLogEntry, error) {
	_, isStaff, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !isStaff {
		return nil, fmt.Errorf("%w: audit trail is staff-only", ErrForbidden)
	}
	return s.audit.ListByRecord(ctx, recordID, limit)
}

// ============================================
// Delete
// ============================================

// DeleteClient removes a client and every satellite row. Audit entries are
// retained; the deletion itself is audited with the final snapshot.
func (s *clientService) DeleteClient(ctx context.Context, actorID, clientID string) error {
	actor, _, err := s.requireActor(ctx, actorID)
	if err != nil {
		return err
	}
	if actor.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: delete is admin-only", ErrForbidden)
	}

	client, err := s.clients.GetClient(ctx, clientID)
	if err != nil {
		return err
	}

	if err := s.tasks.DeleteTasksByClient(ctx, clientID); err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}
	if client.PortalProfileID != nil {
		if err := s.profiles.UnlinkClient(ctx, clientID); err != nil {
			return fmt.Errorf("unlink portal profile: %w", err)
		}
	}
	if err := s.clients.DeleteClient(ctx, clientID); err != nil {
		return err
	}

	_, snapshot := DiffFields(nil, client.Fields())
	if _, err := s.audit.Append(ctx, &domain.AuditLogEntry{
		ActorID:   actor.ProfileID,
		Action:    domain.AuditActionDelete,
		TableName: "clients",
		RecordID:  clientID,
		OldValues: MarshalFields(snapshot),
		NewValues: MarshalFields(map[string]any{}),
	}); err != nil {
		s.logger.Warn("failed to append delete audit entry", zap.String("client_id", clientID), zap.Error(err))
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, "clients"); err != nil {
			s.logger.Warn("cache invalidation failed", zap.Error(err))
		}
	}
	if s.feed != nil {
		if err := s.feed.Publish(ctx, store.ChangeEvent{Entity: "clients", Action: "delete", RecordID: clientID}); err != nil {
			s.logger.Warn("change feed publish failed", zap.Error(err))
		}
	}

	s.logger.Info("client deleted", zap.String("client_id", clientID), zap.String("actor_id", actor.ProfileID))
	return nil
}

// ============================================
// helpers
// ============================================

func (s *clientService) requireActor(ctx context.Context, actorID string) (*domain.Profile, bool, error) {
	if actorID == "" {
		return nil, false, ErrUnauthenticated
	}
	actor, err := s.profiles.GetProfile(ctx, actorID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: unknown actor", ErrUnauthenticated)
	}
	return actor, domain.IsStaffRole(actor.Role), nil
}

func ownsClient(actor *domain.Profile, clientID string) bool {
	return actor.ClientID != nil && *actor.ClientID == clientID
}
