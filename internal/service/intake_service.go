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

// IntakeService the client-intake save pipeline.
//
// Save order: validate -> identity guard -> client write -> satellite
// reconcile (x4, best-effort) -> completion tracking. The client write is the
// point of no return: before it nothing has been persisted, after it the save
// reports success even if satellites fail (failures are surfaced in
// PartialFailures, not swallowed).
type IntakeService interface {
	SaveIntake(ctx context.Context, req SaveIntakeRequest) (*SaveIntakeResponse, error)
}

// SaveIntakeRequest intake save input.
type SaveIntakeRequest struct {
	ActorID  string        // acting profile id; required
	ClientID string        // empty = create, set = update
	Payload  IntakePayload // nested form submission
}

// SaveIntakeResponse intake save outcome.
type SaveIntakeResponse struct {
	ClientID        string   `json:"client_id"`
	Created         bool     `json:"created"`
	IntakeCompleted bool     `json:"intake_completed"`           // true only on the save that stamped it
	PartialFailures []string `json:"partial_failures,omitempty"` // satellite writes that failed
}

type intakeService struct {
	clients  repository.ClientsRepository
	profiles repository.ProfilesRepository
	tasks    repository.TasksRepository
	audit    repository.AuditRepository
	cache    *store.Cache
	feed     store.Feed
	notifier *WebhookNotifier
	metrics  SaveMetrics
	logger   *zap.Logger
}

// SaveMetrics counters observed by the pipeline. Nil-safe no-op when unset.
type SaveMetrics interface {
	ObserveSave(outcome string)
	ObserveSatelliteFailure(table string)
}

// NewIntakeService creates the intake pipeline. notifier may be nil.
func NewIntakeService(
	clients repository.ClientsRepository,
	profiles repository.ProfilesRepository,
	tasks repository.TasksRepository,
	audit repository.AuditRepository,
	cache *store.Cache,
	feed store.Feed,
	notifier *WebhookNotifier,
	metrics SaveMetrics,
	logger *zap.Logger,
) IntakeService {
	return &intakeService{
		clients:  clients,
		profiles: profiles,
		tasks:    tasks,
		audit:    audit,
		cache:    cache,
		feed:     feed,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *intakeService) SaveIntake(ctx context.Context, req SaveIntakeRequest) (*SaveIntakeResponse, error) {
	if req.ActorID == "" {
		s.observeSave("unauthenticated")
		return nil, ErrUnauthenticated
	}
	actor, err := s.profiles.GetProfile(ctx, req.ActorID)
	if err != nil {
		s.observeSave("unauthenticated")
		return nil, fmt.Errorf("%w: unknown actor", ErrUnauthenticated)
	}
	isStaff := domain.IsStaffRole(actor.Role)

	// 1. Validate (pure; aborts before any write)
	validated, err := ValidateIntake(req.Payload)
	if err != nil {
		s.observeSave("validation_error")
		return nil, err
	}

	// 2. Identity guard: a participant email colliding with a staff login
	// aborts the whole save.
	if validated.Client.Email != "" {
		staff, err := s.profiles.GetStaffByEmail(ctx, validated.Client.Email)
		if err != nil {
			s.observeSave("staff_lookup_error")
			return nil, fmt.Errorf("staff email lookup: %w", err)
		}
		if staff != nil {
			s.observeSave("staff_conflict")
			return nil, fmt.Errorf("%w: %s", ErrStaffEmailConflict, staff.FullName)
		}
	}

	// 3. Client write. Everything after this is anchored on clientID.
	var (
		clientID string
		created  bool
	)
	if req.ClientID != "" {
		clientID = req.ClientID
		if err := s.updateClient(ctx, actor, isStaff, clientID, validated); err != nil {
			s.observeSave("client_write_error")
			return nil, err
		}
	} else {
		clientID, err = s.createClient(ctx, actor, validated)
		if err != nil {
			s.observeSave("client_write_error")
			return nil, err
		}
		created = true
	}

	// 4. Satellite reconcile: independent and best-effort. A failed satellite
	// is logged and surfaced, but does not abort the remaining writes.
	var partial []string
	recordFailure := func(table string, err error) {
		s.logger.Error("satellite write failed",
			zap.String("table", table),
			zap.String("client_id", clientID),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.ObserveSatelliteFailure(table)
		}
		partial = append(partial, fmt.Sprintf("%s: %v", table, err))
	}

	if err := s.reconcileCaseManagement(ctx, actor.ProfileID, clientID, validated); err != nil {
		recordFailure("case_management", err)
	}
	if err := s.reconcileDemographics(ctx, actor.ProfileID, clientID, validated); err != nil {
		recordFailure("demographics", err)
	}
	if err := s.reconcileEmergencyContacts(ctx, actor.ProfileID, clientID, validated); err != nil {
		recordFailure("emergency_contacts", err)
	}
	if err := s.reconcileHouseholdMembers(ctx, actor.ProfileID, clientID, validated); err != nil {
		recordFailure("household_members", err)
	}

	// 5. Completion tracking (idempotent).
	completed := s.trackCompletion(ctx, actor, isStaff, clientID)

	// Saved rows changed; drop cached lists and notify feed consumers.
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, "clients"); err != nil {
			s.logger.Warn("cache invalidation failed", zap.Error(err))
		}
	}
	s.publish(ctx, store.ChangeEvent{
		Entity:   "clients",
		Action:   actionFor(created),
		RecordID: clientID,
	})

	s.observeSave("success")
	return &SaveIntakeResponse{
		ClientID:        clientID,
		Created:         created,
		IntakeCompleted: completed,
		PartialFailures: partial,
	}, nil
}

// ============================================
// Client record writer
// ============================================

// clientSelfEditableColumns subset a portal user may change about their own
// record. Administrative fields (status, case manager assignment) are
// staff-only.
var clientSelfEditableColumns = map[string]bool{
	"first_name":          true,
	"last_name":           true,
	"date_of_birth":       true,
	"email":               true,
	"phone":               true,
	"address_street":      true,
	"address_city":        true,
	"address_state":       true,
	"address_postal_code": true,
}

func (s *intakeService) updateClient(ctx context.Context, actor *domain.Profile, isStaff bool, clientID string, v *ValidatedIntake) error {
	// Explicit authorization before the write: staff, or the client's own
	// portal identity.
	ownProfile := actor.ClientID != nil && *actor.ClientID == clientID
	if !isStaff && !ownProfile {
		return fmt.Errorf("%w: cannot update client %s", ErrForbidden, clientID)
	}

	current, err := s.clients.GetClient(ctx, clientID)
	if err != nil {
		return fmt.Errorf("load client for update: %w", err)
	}

	newFields := v.Client.Fields()
	if !isStaff {
		for col := range newFields {
			if !clientSelfEditableColumns[col] {
				delete(newFields, col)
			}
		}
	}

	if err := s.clients.UpdateClient(ctx, clientID, newFields); err != nil {
		return fmt.Errorf("update client: %w", err)
	}

	oldFields := current.Fields()
	for col := range oldFields {
		if _, kept := newFields[col]; !kept {
			delete(oldFields, col)
		}
	}
	oldChanged, newChanged := DiffFields(oldFields, newFields)
	if !DiffEmpty(oldChanged, newChanged) {
		s.appendAudit(ctx, actor.ProfileID, domain.AuditActionUpdate, "clients", clientID, oldChanged, newChanged)
	}
	return nil
}

func (s *intakeService) createClient(ctx context.Context, actor *domain.Profile, v *ValidatedIntake) (string, error) {
	client := v.Client
	client.CreatedBy = actor.ProfileID
	if actor.Role == domain.RoleClient {
		// Self-service intake links the new record to the portal identity.
		id := actor.ProfileID
		client.PortalProfileID = &id
		client.CaseManagerID = nil
	}

	clientID, err := s.clients.CreateClient(ctx, &client)
	if err != nil {
		return "", fmt.Errorf("create client: %w", err)
	}

	_, newChanged := DiffFields(nil, client.Fields())
	s.appendAudit(ctx, actor.ProfileID, domain.AuditActionCreate, "clients", clientID, map[string]any{}, newChanged)

	// New clients get the onboarding checklist row the completion tracker
	// closes later.
	if _, err := s.tasks.CreateTask(ctx, &domain.Task{ClientID: clientID, Title: domain.TaskIntakeForm}); err != nil {
		s.logger.Warn("failed to create onboarding task", zap.String("client_id", clientID), zap.Error(err))
	}
	return clientID, nil
}

// ============================================
// Satellite reconcilers
// ============================================

func (s *intakeService) reconcileCaseManagement(ctx context.Context, actorID, clientID string, v *ValidatedIntake) error {
	next := v.CaseManagement
	next.ClientID = clientID

	existing, err := s.clients.GetCaseManagement(ctx, clientID)
	if err != nil {
		return err
	}
	if existing == nil {
		if _, err := s.clients.CreateCaseManagement(ctx, &next); err != nil {
			return err
		}
		_, newChanged := DiffFields(nil, next.Fields())
		s.appendAudit(ctx, actorID, domain.AuditActionCreate, "case_management", clientID, map[string]any{}, newChanged)
		return nil
	}

	if err := s.clients.UpdateCaseManagement(ctx, clientID, &next); err != nil {
		return err
	}
	oldChanged, newChanged := DiffFields(existing.Fields(), next.Fields())
	if !DiffEmpty(oldChanged, newChanged) {
		s.appendAudit(ctx, actorID, domain.AuditActionUpdate, "case_management", clientID, oldChanged, newChanged)
	}
	return nil
}

func (s *intakeService) reconcileDemographics(ctx context.Context, actorID, clientID string, v *ValidatedIntake) error {
	next := v.Demographics
	next.ClientID = clientID

	existing, err := s.clients.GetDemographics(ctx, clientID)
	if err != nil {
		return err
	}
	if existing == nil {
		if _, err := s.clients.CreateDemographics(ctx, &next); err != nil {
			return err
		}
		_, newChanged := DiffFields(nil, next.Fields())
		s.appendAudit(ctx, actorID, domain.AuditActionCreate, "demographics", clientID, map[string]any{}, newChanged)
		return nil
	}

	if err := s.clients.UpdateDemographics(ctx, clientID, &next); err != nil {
		return err
	}
	oldChanged, newChanged := DiffFields(existing.Fields(), next.Fields())
	if !DiffEmpty(oldChanged, newChanged) {
		s.appendAudit(ctx, actorID, domain.AuditActionUpdate, "demographics", clientID, oldChanged, newChanged)
	}
	return nil
}

// List satellites follow the replace policy: snapshot, delete all, reinsert.
// Row identity is lost on every save; the audit diff compares content only.
func (s *intakeService) reconcileEmergencyContacts(ctx context.Context, actorID, clientID string, v *ValidatedIntake) error {
	old, err := s.clients.GetEmergencyContacts(ctx, clientID)
	if err != nil {
		return err
	}

	next := make([]*domain.EmergencyContact, len(v.EmergencyContacts))
	for i, c := range v.EmergencyContacts {
		cp := *c
		cp.ClientID = clientID
		next[i] = &cp
	}
	if err := s.clients.ReplaceEmergencyContacts(ctx, clientID, next); err != nil {
		return err
	}

	oldSnap := contactSnapshots(old)
	newSnap := contactSnapshots(next)
	if ListChanged(oldSnap, newSnap) {
		s.appendListAudit(ctx, actorID, "emergency_contacts", clientID, oldSnap, newSnap)
	}
	return nil
}

func (s *intakeService) reconcileHouseholdMembers(ctx context.Context, actorID, clientID string, v *ValidatedIntake) error {
	old, err := s.clients.GetHouseholdMembers(ctx, clientID)
	if err != nil {
		return err
	}

	next := make([]*domain.HouseholdMember, len(v.HouseholdMembers))
	for i, m := range v.HouseholdMembers {
		cp := *m
		cp.ClientID = clientID
		next[i] = &cp
	}
	if err := s.clients.ReplaceHouseholdMembers(ctx, clientID, next); err != nil {
		return err
	}

	oldSnap := memberSnapshots(old)
	newSnap := memberSnapshots(next)
	if ListChanged(oldSnap, newSnap) {
		s.appendListAudit(ctx, actorID, "household_members", clientID, oldSnap, newSnap)
	}
	return nil
}

func contactSnapshots(list []*domain.EmergencyContact) []map[string]any {
	out := make([]map[string]any, len(list))
	for i, c := range list {
		out[i] = c.Fields()
	}
	return out
}

func memberSnapshots(list []*domain.HouseholdMember) []map[string]any {
	out := make([]map[string]any, len(list))
	for i, m := range list {
		out[i] = m.Fields()
	}
	return out
}

// ============================================
// Completion tracker
// ============================================

// trackCompletion stamps intake_completed_at on the first qualifying save and
// closes the onboarding task. Returns true only when this call did the stamp.
func (s *intakeService) trackCompletion(ctx context.Context, actor *domain.Profile, isStaff bool, clientID string) bool {
	client, err := s.clients.GetClient(ctx, clientID)
	if err != nil {
		s.logger.Warn("completion check: failed to re-fetch client", zap.String("client_id", clientID), zap.Error(err))
		return false
	}

	ownProfile := actor.ClientID != nil && *actor.ClientID == clientID
	if client.PortalProfileID != nil && *client.PortalProfileID == actor.ProfileID {
		ownProfile = true
	}
	if !ownProfile && !isStaff {
		return false
	}
	if client.IntakeCompletedAt != nil {
		return false
	}

	now := time.Now()
	stamped, err := s.clients.SetIntakeCompleted(ctx, clientID, now)
	if err != nil {
		s.logger.Error("failed to stamp intake completion", zap.String("client_id", clientID), zap.Error(err))
		return false
	}
	if !stamped {
		return false // raced with a concurrent save; the other writer owns the stamp
	}

	if _, err := s.tasks.CompleteTaskByTitle(ctx, clientID, domain.TaskIntakeForm, actor.ProfileID, now); err != nil {
		s.logger.Warn("failed to complete onboarding task", zap.String("client_id", clientID), zap.Error(err))
	}
	s.publish(ctx, store.ChangeEvent{Entity: "tasks", Action: "update", RecordID: clientID})

	if s.notifier != nil {
		if err := s.notifier.IntakeCompleted(ctx, clientID, now); err != nil {
			s.logger.Warn("intake-completed webhook failed", zap.String("client_id", clientID), zap.Error(err))
		}
	}

	s.logger.Info("intake completed", zap.String("client_id", clientID), zap.String("actor_id", actor.ProfileID))
	return true
}

// ============================================
// helpers
// ============================================

func (s *intakeService) appendAudit(ctx context.Context, actorID, action, table, recordID string, oldChanged, newChanged map[string]any) {
	_, err := s.audit.Append(ctx, &domain.AuditLogEntry{
		ActorID:   actorID,
		Action:    action,
		TableName: table,
		RecordID:  recordID,
		OldValues: MarshalFields(oldChanged),
		NewValues: MarshalFields(newChanged),
	})
	if err != nil {
		// Audit is observability, not a write dependency.
		s.logger.Warn("failed to append audit entry", zap.String("table", table), zap.Error(err))
	}
}

func (s *intakeService) appendListAudit(ctx context.Context, actorID, table, clientID string, oldSnap, newSnap []map[string]any) {
	_, err := s.audit.Append(ctx, &domain.AuditLogEntry{
		ActorID:   actorID,
		Action:    domain.AuditActionUpdate,
		TableName: table,
		RecordID:  clientID,
		OldValues: MarshalListSnapshot(oldSnap),
		NewValues: MarshalListSnapshot(newSnap),
	})
	if err != nil {
		s.logger.Warn("failed to append audit entry", zap.String("table", table), zap.Error(err))
	}
}

func (s *intakeService) publish(ctx context.Context, ev store.ChangeEvent) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, ev); err != nil {
		s.logger.Warn("change feed publish failed", zap.String("entity", ev.Entity), zap.Error(err))
	}
}

func (s *intakeService) observeSave(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveSave(outcome)
	}
}

func actionFor(created bool) string {
	if created {
		return "create"
	}
	return "update"
}
