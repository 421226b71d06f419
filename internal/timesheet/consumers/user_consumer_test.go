package consumers_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/consumers"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/repository"
	"github.com/tyotrack/tyotrack-backend/pkg/logger"
	"github.com/tyotrack/tyotrack-backend/pkg/messaging"
	"github.com/tyotrack/tyotrack-backend/pkg/tenant"
	"github.com/tyotrack/tyotrack-backend/pkg/testutil"
)

type fakeUsers struct {
	users   map[string]*repository.UserSettings
	deleted []string
	schemas []string
	err     error
}

func (f *fakeUsers) GetUserSettings(ctx context.Context, userID string) (*repository.UserSettings, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[userID], nil
}

func (f *fakeUsers) UpsertUserSettings(ctx context.Context, s *repository.UserSettings) error {
	schema, _ := tenant.TenantSchema(ctx)
	f.schemas = append(f.schemas, schema)
	f.users[s.UserID] = s
	return nil
}

func (f *fakeUsers) SoftDeleteUserSettings(ctx context.Context, userID string) error {
	f.deleted = append(f.deleted, userID)
	delete(f.users, userID)
	return nil
}

func setup() (*fakeUsers, *messaging.Router) {
	store := &fakeUsers{users: map[string]*repository.UserSettings{}}
	router := messaging.NewRouter(logger.Nop())
	consumers.NewUserEventHandlers(store, nil).Register(router)
	return store, router
}

func body(t *testing.T, eventType string, data interface{}) []byte {
	t.Helper()
	event, err := messaging.NewEvent(eventType, "user-service", "corr-1", data)
	require.NoError(t, err)
	b, err := json.Marshal(event)
	require.NoError(t, err)
	return b
}

func userEvent(autoApprove *bool) messaging.UserEvent {
	return messaging.UserEvent{
		UserID:       "user-1",
		Email:        "aino@example.fi",
		Name:         "Aino Virtanen",
		Role:         "employee",
		AutoApprove:  autoApprove,
		TenantID:     testutil.TestTenantID,
		TenantSlug:   "test-tenant",
		TenantSchema: testutil.TestTenantSchema,
	}
}

func TestUserCreated_StoresSettings(t *testing.T) {
	store, router := setup()

	outcome := router.Route(context.Background(), body(t, messaging.EventUserCreated, userEvent(testutil.PtrBool(true))), 0)
	require.Equal(t, messaging.Ack, outcome)

	u := store.users["user-1"]
	require.NotNil(t, u)
	assert.True(t, u.IsAutoApprove)
	assert.Equal(t, "EMPLOYEE", u.Role)
	assert.Equal(t, "Aino Virtanen", *u.Name)
	assert.Equal(t, []string{testutil.TestTenantSchema}, store.schemas)
}

func TestUserUpdated_KeepsAutoApproveWhenAbsent(t *testing.T) {
	store, router := setup()
	store.users["user-1"] = &repository.UserSettings{UserID: "user-1", IsAutoApprove: true}

	outcome := router.Route(context.Background(), body(t, messaging.EventUserUpdated, userEvent(nil)), 0)
	require.Equal(t, messaging.Ack, outcome)
	assert.True(t, store.users["user-1"].IsAutoApprove)
}

func TestUserUpdated_ChangesAutoApprove(t *testing.T) {
	store, router := setup()
	store.users["user-1"] = &repository.UserSettings{UserID: "user-1", IsAutoApprove: true}

	router.Route(context.Background(), body(t, messaging.EventUserUpdated, userEvent(testutil.PtrBool(false))), 0)
	assert.False(t, store.users["user-1"].IsAutoApprove)
}

func TestUserDeleted(t *testing.T) {
	store, router := setup()
	store.users["user-1"] = &repository.UserSettings{UserID: "user-1"}

	outcome := router.Route(context.Background(), body(t, messaging.EventUserDeleted, messaging.UserDeletedEvent{
		UserID: "user-1", TenantID: testutil.TestTenantID, TenantSchema: testutil.TestTenantSchema,
	}), 0)
	require.Equal(t, messaging.Ack, outcome)
	assert.Equal(t, []string{"user-1"}, store.deleted)
}

func TestUserEvent_InvalidSchemaIsRequeued(t *testing.T) {
	store, router := setup()
	ev := userEvent(nil)
	ev.TenantSchema = "public; DROP TABLE x"

	outcome := router.Route(context.Background(), body(t, messaging.EventUserCreated, ev), 0)
	assert.Equal(t, messaging.Requeue, outcome)
	assert.Empty(t, store.users)
}

func TestUserEvent_StoreFailureDeadLettersAfterRetries(t *testing.T) {
	store, router := setup()
	store.err = errors.New("database down")

	outcome := router.Route(context.Background(), body(t, messaging.EventUserUpdated, userEvent(nil)), messaging.MaxRedeliveries)
	assert.Equal(t, messaging.DeadLetter, outcome)
}
