package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"caseflow-data/internal/domain"
	"caseflow-data/internal/repository"
	"caseflow-data/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type clientFixture struct {
	clients  *repository.MemoryClientsRepository
	profiles *repository.MemoryProfilesRepository
	tasks    *repository.MemoryTasksRepository
	audit    *repository.MemoryAuditRepository
	feed     *store.MemoryFeed
	cache    *store.Cache
	svc      ClientService
}

func newClientFixture() *clientFixture {
	f := &clientFixture{
		clients:  repository.NewMemoryClientsRepository(),
		profiles: repository.NewMemoryProfilesRepository(),
		tasks:    repository.NewMemoryTasksRepository(),
		audit:    repository.NewMemoryAuditRepository(),
		feed:     store.NewMemoryFeed(),
	}
	f.cache = store.NewCache(store.NewMemoryKV(), time.Minute)
	f.svc = NewClientService(f.clients, f.profiles, f.tasks, f.audit, f.cache, f.feed, zap.NewNop())
	return f
}

func (f *clientFixture) seedProfile(t *testing.T, email, role string, clientID *string) string {
	t.Helper()
	id, err := f.profiles.CreateProfile(context.Background(), &domain.Profile{
		Email:    email,
		FullName: "Test Person",
		Role:     role,
		ClientID: clientID,
	})
	require.NoError(t, err)
	return id
}

func (f *clientFixture) seedClients(t *testing.T, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, err := f.clients.CreateClient(context.Background(), &domain.Client{
			FirstName: fmt.Sprintf("Client%02d", i),
			LastName:  "Test",
			Email:     fmt.Sprintf("client%02d@example.com", i),
			Status:    domain.ClientStatusActive,
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestListClients_PaginatesWithCursor(t *testing.T) {
	f := newClientFixture()
	ctx := context.Background()
	staffID := f.seedProfile(t, "cm@agency.org", domain.RoleCaseManager, nil)
	f.seedClients(t, 5)

	page1, err := f.svc.ListClients(ctx, ListClientsRequest{ActorID: staffID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1.Clients, 2)
	assert.True(t, page1.HasMore)
	require.NotEmpty(t, page1.NextCursor)
	// newest first
	assert.Equal(t, "Client04", page1.Clients[0].FirstName)
	assert.Equal(t, "Client03", page1.Clients[1].FirstName)

	page2, err := f.svc.ListClients(ctx, ListClientsRequest{ActorID: staffID, Limit: 2, Cursor: page1.NextCursor})
	require.NoError(t, err)
	require.Len(t, page2.Clients, 2)
	assert.True(t, page2.HasMore)
	assert.Equal(t, "Client02", page2.Clients[0].FirstName)
	assert.Equal(t, "Client01", page2.Clients[1].FirstName)

	page3, err := f.svc.ListClients(ctx, ListClientsRequest{ActorID: staffID, Limit: 2, Cursor: page2.NextCursor})
	require.NoError(t, err)
	require.Len(t, page3.Clients, 1)
	assert.False(t, page3.HasMore)
	assert.Empty(t, page3.NextCursor)
	assert.Equal(t, "Client00", page3.Clients[0].FirstName)
}

func TestListClients_MalformedCursorRejected(t *testing.T) {
	f := newClientFixture()
	staffID := f.seedProfile(t, "cm@agency.org", domain.RoleCaseManager, nil)

	_, err := f.svc.ListClients(context.Background(), ListClientsRequest{ActorID: staffID, Cursor: "yesterday"})

	assert.ErrorIs(t, err, ErrValidation)
}

func TestListClients_StaffOnly(t *testing.T) {
	f := newClientFixture()
	portalID := f.seedProfile(t, "user@example.com", domain.RoleClient, nil)

	_, err := f.svc.ListClients(context.Background(), ListClientsRequest{ActorID: portalID})

	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListClients_FirstPageServedFromCache(t *testing.T) {
	f := newClientFixture()
	ctx := context.Background()
	staffID := f.seedProfile(t, "cm@agency.org", domain.RoleCaseManager, nil)
	f.seedClients(t, 3)

	first, err := f.svc.ListClients(ctx, ListClientsRequest{ActorID: staffID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, first.Clients, 3)

	// a write that bypasses the service does not invalidate the cache
	f.seedClients(t, 1)

	second, err := f.svc.ListClients(ctx, ListClientsRequest{ActorID: staffID, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, second.Clients, 3, "first page is served from cache until invalidated")

	require.NoError(t, f.cache.Invalidate(ctx, "clients"))
	third, err := f.svc.ListClients(ctx, ListClientsRequest{ActorID: staffID, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, third.Clients, 4)
}

func TestGetClient_SelfOrStaffOnly(t *testing.T) {
	f := newClientFixture()
	ctx := context.Background()
	ids := f.seedClients(t, 2)
	staffID := f.seedProfile(t, "cm@agency.org", domain.RoleCaseManager, nil)
	ownerID := f.seedProfile(t, "owner@example.com", domain.RoleClient, &ids[0])

	view, err := f.svc.GetClient(ctx, staffID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, ids[0], view.ClientID)

	view, err = f.svc.GetClient(ctx, ownerID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, ids[0], view.ClientID)

	_, err = f.svc.GetClient(ctx, ownerID, ids[1])
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.GetClient(ctx, staffID, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetClientFullData_IncludesSatellites(t *testing.T) {
	f := newClientFixture()
	ctx := context.Background()
	ids := f.seedClients(t, 1)
	staffID := f.seedProfile(t, "cm@agency.org", domain.RoleCaseManager, nil)

	_, err := f.clients.CreateCaseManagement(ctx, &domain.CaseManagement{
		ClientID:      ids[0],
		HousingStatus: domain.HousingStatusHoused,
	})
	require.NoError(t, err)
	require.NoError(t, f.clients.ReplaceEmergencyContacts(ctx, ids[0], []*domain.EmergencyContact{
		{Name: "Rosa Lopez", Phone: "555-0202"},
	}))
	_, err = f.tasks.CreateTask(ctx, &domain.Task{ClientID: ids[0], Title: domain.TaskIntakeForm})
	require.NoError(t, err)

	full, err := f.svc.GetClientFullData(ctx, staffID, ids[0])
	require.NoError(t, err)
	require.NotNil(t, full.Client)
	require.NotNil(t, full.CaseManagement)
	assert.Equal(t, domain.HousingStatusHoused, full.CaseManagement.HousingStatus)
	assert.Nil(t, full.Demographics, "absent satellite stays nil")
	assert.Len(t, full.EmergencyContacts, 1)
	assert.Empty(t, full.HouseholdMembers)
	assert.Len(t, full.Tasks, 1)
}

func TestDeleteClient_AdminOnly(t *testing.T) {
	f := newClientFixture()
	ctx := context.Background()
	ids := f.seedClients(t, 1)
	managerID := f.seedProfile(t, "cm@agency.org", domain.RoleCaseManager, nil)

	err := f.svc.DeleteClient(ctx, managerID, ids[0])

	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteClient_RemovesRowsAndAudits(t *testing.T) {
	f := newClientFixture()
	ctx := context.Background()
	ids := f.seedClients(t, 1)
	adminID := f.seedProfile(t, "admin@agency.org", domain.RoleAdmin, nil)
	_, err := f.tasks.CreateTask(ctx, &domain.Task{ClientID: ids[0], Title: domain.TaskIntakeForm})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteClient(ctx, adminID, ids[0]))

	_, err = f.clients.GetClient(ctx, ids[0])
	assert.ErrorIs(t, err, repository.ErrNotFound)

	tasks, err := f.tasks.ListTasks(ctx, ids[0])
	require.NoError(t, err)
	assert.Empty(t, tasks)

	// audit trail survives the delete and records the final snapshot
	entries := f.audit.All()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditActionDelete, entries[0].Action)
	assert.Equal(t, "clients", entries[0].TableName)
	assert.Equal(t, ids[0], entries[0].RecordID)

	var oldValues map[string]any
	require.NoError(t, json.Unmarshal(entries[0].OldValues, &oldValues))
	assert.Equal(t, "Client00", oldValues["first_name"])
	assert.Equal(t, "client00@example.com", oldValues["email"])
	assert.Equal(t, domain.ClientStatusActive, oldValues["status"])
	assert.JSONEq(t, `{}`, string(entries[0].NewValues))

	events := f.feed.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "delete", events[len(events)-1].Action)
}

func TestListAuditTrail_StaffOnly(t *testing.T) {
	f := newClientFixture()
	ctx := context.Background()
	ids := f.seedClients(t, 1)
	portalID := f.seedProfile(t, "user@example.com", domain.RoleClient, &ids[0])

	_, err := f.svc.ListAuditTrail(ctx, portalID, ids[0], 10)

	assert.ErrorIs(t, err, ErrForbidden)
}
