package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"caseflow-data/internal/domain"
	"caseflow-data/internal/repository"
	"caseflow-data/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type intakeFixture struct {
	clients  *repository.MemoryClientsRepository
	profiles *repository.MemoryProfilesRepository
	tasks    *repository.MemoryTasksRepository
	audit    *repository.MemoryAuditRepository
	feed     *store.MemoryFeed
	cache    *store.Cache
	svc      IntakeService
}

func newIntakeFixture() *intakeFixture {
	f := &intakeFixture{
		clients:  repository.NewMemoryClientsRepository(),
		profiles: repository.NewMemoryProfilesRepository(),
		tasks:    repository.NewMemoryTasksRepository(),
		audit:    repository.NewMemoryAuditRepository(),
		feed:     store.NewMemoryFeed(),
	}
	f.cache = store.NewCache(store.NewMemoryKV(), time.Minute)
	f.svc = NewIntakeService(f.clients, f.profiles, f.tasks, f.audit, f.cache, f.feed, nil, nil, zap.NewNop())
	return f
}

func (f *intakeFixture) seedStaff(t *testing.T, email, role string) string {
	t.Helper()
	id, err := f.profiles.CreateProfile(context.Background(), &domain.Profile{
		Email:    email,
		FullName: "Test Staff",
		Role:     role,
	})
	require.NoError(t, err)
	return id
}

func (f *intakeFixture) seedPortalUser(t *testing.T, email, clientID string) string {
	t.Helper()
	p := &domain.Profile{Email: email, FullName: "Portal User", Role: domain.RoleClient}
	if clientID != "" {
		p.ClientID = &clientID
	}
	id, err := f.profiles.CreateProfile(context.Background(), p)
	require.NoError(t, err)
	return id
}

func fullPayload() IntakePayload {
	score := 7
	return IntakePayload{
		Participant: ParticipantInput{
			FirstName:   "Maria",
			LastName:    "Lopez",
			DateOfBirth: "1990-04-12",
			Email:       "maria.lopez@example.com",
			Phone:       "555-0101",
			AddressCity: "Springfield",
			Status:      "active",
		},
		CaseManagement: CaseManagementInput{
			HousingStatus:     "at_risk",
			PreferredLanguage: "es",
			InterpreterNeeded: true,
			AssessmentScore:   &score,
		},
		Demographics: DemographicsInput{
			Race:   []string{"white", "other"},
			Gender: "female",
		},
		EmergencyContacts: []EmergencyContactInput{
			{Name: "Rosa Lopez", Relationship: "mother", Phone: "555-0202"},
		},
		HouseholdMembers: []HouseholdMemberInput{
			{FullName: "Juan Lopez", Relationship: "son", DateOfBirth: "2015-06-01"},
		},
	}
}

func TestSaveIntake_CreatePersistsAllSections(t *testing.T) {
	f := newIntakeFixture()
	ctx := context.Background()
	staffID := f.seedStaff(t, "cm@agency.org", domain.RoleCaseManager)

	resp, err := f.svc.SaveIntake(ctx, SaveIntakeRequest{ActorID: staffID, Payload: fullPayload()})

	require.NoError(t, err)
	assert.True(t, resp.Created)
	assert.True(t, resp.IntakeCompleted)
	assert.Empty(t, resp.PartialFailures)
	require.NotEmpty(t, resp.ClientID)

	client, err := f.clients.GetClient(ctx, resp.ClientID)
	require.NoError(t, err)
	assert.Equal(t, "Maria", client.FirstName)
	assert.Equal(t, domain.ClientStatusActive, client.Status)
	assert.Equal(t, staffID, client.CreatedBy)
	require.NotNil(t, client.IntakeCompletedAt)

	cm, err := f.clients.GetCaseManagement(ctx, resp.ClientID)
	require.NoError(t, err)
	require.NotNil(t, cm)
	assert.Equal(t, domain.HousingStatusAtRisk, cm.HousingStatus)

	demo, err := f.clients.GetDemographics(ctx, resp.ClientID)
	require.NoError(t, err)
	require.NotNil(t, demo)
	assert.Equal(t, []string{"white", "other"}, demo.Race)

	contacts, err := f.clients.GetEmergencyContacts(ctx, resp.ClientID)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Rosa Lopez", contacts[0].Name)

	members, err := f.clients.GetHouseholdMembers(ctx, resp.ClientID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "Juan", members[0].FirstName)

	// onboarding task created and closed by the completing save
	tasks, err := f.tasks.ListTasks(ctx, resp.ClientID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.TaskIntakeForm, tasks[0].Title)
	assert.True(t, tasks[0].Completed)

	// one audit entry per written table
	entries := f.audit.All()
	tables := make(map[string]string, len(entries))
	for _, e := range entries {
		tables[e.TableName] = e.Action
	}
	assert.Len(t, entries, 5)
	assert.Equal(t, domain.AuditActionCreate, tables["clients"])
	assert.Equal(t, domain.AuditActionCreate, tables["case_management"])
	assert.Equal(t, domain.AuditActionCreate, tables["demographics"])
	assert.Equal(t, domain.AuditActionUpdate, tables["emergency_contacts"])
	assert.Equal(t, domain.AuditActionUpdate, tables["household_members"])
}

func TestSaveIntake_UnchangedResaveWritesNoAudit(t *testing.T) {
	f := newIntakeFixture()
	ctx := context.Background()
	staffID := f.seedStaff(t, "cm@agency.org", domain.RoleCaseManager)

	first, err := f.svc.SaveIntake(ctx, SaveIntakeRequest{ActorID: staffID, Payload: fullPayload()})
	require.NoError(t, err)

	before := len(f.audit.All())
	contactsBefore, err := f.clients.GetEmergencyContacts(ctx, first.ClientID)
	require.NoError(t, err)

	second, err := f.svc.SaveIntake(ctx, SaveIntakeRequest{
		ActorID:  staffID,
		ClientID: first.ClientID,
		Payload:  fullPayload(),
	})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.False(t, second.IntakeCompleted) // stamped by the first save, never re-fired

	// identical content: no new audit entries even though rows were rewritten
	assert.Len(t, f.audit.All(), before)

	// replace policy: contact rows get fresh ids on every save
	contactsAfter, err := f.clients.GetEmergencyContacts(ctx, first.ClientID)
	require.NoError(t, err)
	require.Len(t, contactsAfter, 1)
	assert.NotEqual(t, contactsBefore[0].ContactID, contactsAfter[0].ContactID)
	assert.Equal(t, contactsBefore[0].Name, contactsAfter[0].Name)
}

func TestSaveIntake_ChangedFieldProducesOneDiffEntry(t *testing.T) {
	f := newIntakeFixture()
	ctx := context.Background()
	staffID := f.seedStaff(t, "cm@agency.org", domain.RoleCaseManager)

	first, err := f.svc.SaveIntake(ctx, SaveIntakeRequest{ActorID: staffID, Payload: fullPayload()})
	require.NoError(t, err)
	before := len(f.audit.All())

	p := fullPayload()
	p.Participant.Phone = "555-9999"
	_, err = f.svc.SaveIntake(ctx, SaveIntakeRequest{ActorID: staffID, ClientID: first.ClientID, Payload: p})
	require.NoError(t, err)

	entries := f.audit.All()
	require.Len(t, entries, before+1)
	last := entries[len(entries)-1]
	assert.Equal(t, "clients", last.TableName)
	assert.Equal(t, domain.AuditActionUpdate, last.Action)
	assert.JSONEq(t, `{"phone":"555-0101"}`, string(last.OldValues))
	assert.JSONEq(t, `{"phone":"555-9999"}`, string(last.NewValues))
}

func TestSaveIntake_StaffEmailConflictAborts(t *testing.T) {
	f := newIntakeFixture()
	ctx := context.Background()
	staffID := f.seedStaff(t, "cm@agency.org", domain.RoleCaseManager)
	f.seedStaff(t, "worker@agency.org", domain.RoleStaff)

	p := fullPayload()
	p.Participant.Email = "Worker@Agency.org"

	_, err := f.svc.SaveIntake(ctx, SaveIntakeRequest{ActorID: staffID, Payload: p})

	assert.ErrorIs(t, err, ErrStaffEmailConflict)
	rows, listErr := f.clients.ListClients(ctx, repository.ClientFilters{}, 10)
	require.NoError(t, listErr)
	assert.Empty(t, rows, "nothing may be written on an aborted save")
	assert.Empty(t, f.audit.All())
}

func TestSaveIntake_RequiresActor(t *testing.T) {
	f := newIntakeFixture()
	ctx := context.Background()

	_, err := f.svc.SaveIntake(ctx, SaveIntakeRequest{Payload: fullPayload()})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.svc.SaveIntake(ctx, SaveIntakeRequest{ActorID: "not-a-profile", Payload: fullPayload()})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSaveIntake_PortalUserCannotUpdateOthers(t *testing.T) {
	f := newIntakeFixture()
	ctx := context.Background()
	staffID := f.seedStaff(t, "cm@agency.org", domain.RoleCaseManager)

	created, err := f.svc.SaveIntake(ctx, SaveIntakeRequest{ActorID: staffID, Payload: fullPayload()})
	require.NoError(t, err)

	strangerID := f.seedPortalUser(t, "stranger@example.com", "some-other-client")

	_, err = f.svc.SaveIntake(ctx, SaveIntakeRequest{
		ActorID:  strangerID,
		ClientID: created.ClientID,
		Payload:  fullPayload(),
	})

	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSaveIntake_SelfServiceCannotChangeAdminFields(t *testing.T) {
	f := newIntakeFixture()
	ctx := context.Background()
	staffID := f.seedStaff(t, "cm@agency.org", domain.RoleCaseManager)

	p := fullPayload()
	p.Participant.CaseManagerID = staffID
	created, err := f.svc.SaveIntake(ctx, SaveIntakeRequest{ActorID: staffID, Payload: p})
	require.NoError(t, err)

	portalID := f.seedPortalUser(t, "maria.lopez@example.com", created.ClientID)

	edit := fullPayload()
	edit.Participant.Status = "archived"
	edit.Participant.CaseManagerID = "some-other-manager"
	edit.Participant.Phone = "555-7777"
	_, err = f.svc.SaveIntake(ctx, SaveIntakeRequest{ActorID: portalID, ClientID: created.ClientID, Payload: edit})
	require.NoError(t, err)

	client, err := f.clients.GetClient(ctx, created.ClientID)
	require.NoError(t, err)
	assert.Equal(t, "555-7777", client.Phone, "contact fields are self-editable")
	assert.Equal(t, domain.ClientStatusActive, client.Status, "status is staff-only")
	require.NotNil(t, client.CaseManagerID)
	assert.Equal(t, staffID, *client.CaseManagerID, "assignment is staff-only")
}

func TestSaveIntake_PortalUserCompletesOwnIntake(t *testing.T) {
	f := newIntakeFixture()
	ctx := context.Background()

	// client exists but has never finished the form
	clientID, err := f.clients.CreateClient(ctx, &domain.Client{
		FirstName: "Maria",
		LastName:  "Lopez",
		Email:     "maria.lopez@example.com",
		Status:    domain.ClientStatusPending,
	})
	require.NoError(t, err)
	_, err = f.tasks.CreateTask(ctx, &domain.Task{ClientID: clientID, Title: domain.TaskIntakeForm})
	require.NoError(t, err)

	portalID := f.seedPortalUser(t, "maria.lopez@example.com", clientID)

	resp, err := f.svc.SaveIntake(ctx, SaveIntakeRequest{
		ActorID:  portalID,
		ClientID: clientID,
		Payload:  fullPayload(),
	})
	require.NoError(t, err)
	assert.False(t, resp.Created)
	assert.True(t, resp.IntakeCompleted, "a portal user saving their own record completes the intake")

	client, err := f.clients.GetClient(ctx, clientID)
	require.NoError(t, err)
	require.NotNil(t, client.IntakeCompletedAt)

	tasks, err := f.tasks.ListTasks(ctx, clientID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].Completed)
	require.NotNil(t, tasks[0].CompletedBy)
	assert.Equal(t, portalID, *tasks[0].CompletedBy)

	// completion fires once
	again, err := f.svc.SaveIntake(ctx, SaveIntakeRequest{
		ActorID:  portalID,
		ClientID: clientID,
		Payload:  fullPayload(),
	})
	require.NoError(t, err)
	assert.False(t, again.IntakeCompleted)
}

func TestSaveIntake_ValidationAbortsBeforeWrite(t *testing.T) {
	f := newIntakeFixture()
	ctx := context.Background()
	staffID := f.seedStaff(t, "cm@agency.org", domain.RoleCaseManager)

	p := fullPayload()
	p.Participant.LastName = ""

	_, err := f.svc.SaveIntake(ctx, SaveIntakeRequest{ActorID: staffID, Payload: p})

	assert.ErrorIs(t, err, ErrValidation)
	rows, listErr := f.clients.ListClients(ctx, repository.ClientFilters{}, 10)
	require.NoError(t, listErr)
	assert.Empty(t, rows)
}

// failingContactsRepo forces the emergency-contacts write to fail.
type failingContactsRepo struct {
	*repository.MemoryClientsRepository
}

func (r *failingContactsRepo) ReplaceEmergencyContacts(context.Context, string, []*domain.EmergencyContact) error {
	return errors.New("contacts table unavailable")
}

func TestSaveIntake_SatelliteFailureIsSurfacedNotFatal(t *testing.T) {
	f := newIntakeFixture()
	ctx := context.Background()
	staffID := f.seedStaff(t, "cm@agency.org", domain.RoleCaseManager)

	broken := &failingContactsRepo{f.clients}
	svc := NewIntakeService(broken, f.profiles, f.tasks, f.audit, f.cache, f.feed, nil, nil, zap.NewNop())

	resp, err := svc.SaveIntake(ctx, SaveIntakeRequest{ActorID: staffID, Payload: fullPayload()})

	require.NoError(t, err, "a satellite failure must not abort the save")
	require.Len(t, resp.PartialFailures, 1)
	assert.Contains(t, resp.PartialFailures[0], "emergency_contacts")

	// the client row and the other satellites still landed
	_, err = f.clients.GetClient(ctx, resp.ClientID)
	require.NoError(t, err)
	members, err := f.clients.GetHouseholdMembers(ctx, resp.ClientID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

// recordingMetrics captures pipeline outcome observations.
type recordingMetrics struct {
	saves      []string
	satellites []string
}

func (m *recordingMetrics) ObserveSave(outcome string)            { m.saves = append(m.saves, outcome) }
func (m *recordingMetrics) ObserveSatelliteFailure(table string) { m.satellites = append(m.satellites, table) }

func TestSaveIntake_EveryExitRecordsAnOutcome(t *testing.T) {
	f := newIntakeFixture()
	ctx := context.Background()
	staffID := f.seedStaff(t, "cm@agency.org", domain.RoleCaseManager)

	m := &recordingMetrics{}
	svc := NewIntakeService(f.clients, f.profiles, f.tasks, f.audit, f.cache, f.feed, nil, m, zap.NewNop())

	_, err := svc.SaveIntake(ctx, SaveIntakeRequest{Payload: fullPayload()})
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.SaveIntake(ctx, SaveIntakeRequest{ActorID: "not-a-profile", Payload: fullPayload()})
	require.ErrorIs(t, err, ErrUnauthenticated)

	bad := fullPayload()
	bad.Participant.LastName = ""
	_, err = svc.SaveIntake(ctx, SaveIntakeRequest{ActorID: staffID, Payload: bad})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.SaveIntake(ctx, SaveIntakeRequest{ActorID: staffID, Payload: fullPayload()})
	require.NoError(t, err)

	assert.Equal(t, []string{"unauthenticated", "unauthenticated", "validation_error", "success"}, m.saves)
}

func TestSaveIntake_PublishesChangeEvents(t *testing.T) {
	f := newIntakeFixture()
	ctx := context.Background()
	staffID := f.seedStaff(t, "cm@agency.org", domain.RoleCaseManager)

	resp, err := f.svc.SaveIntake(ctx, SaveIntakeRequest{ActorID: staffID, Payload: fullPayload()})
	require.NoError(t, err)

	events := f.feed.Events()
	var sawClientCreate, sawTaskUpdate bool
	for _, ev := range events {
		if ev.Entity == "clients" && ev.Action == "create" && ev.RecordID == resp.ClientID {
			sawClientCreate = true
		}
		if ev.Entity == "tasks" && ev.Action == "update" {
			sawTaskUpdate = true
		}
	}
	assert.True(t, sawClientCreate)
	assert.True(t, sawTaskUpdate)
}
