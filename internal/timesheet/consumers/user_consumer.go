package consumers

import (
	"context"
	"fmt"
	"strings"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/repository"
	"github.com/tyotrack/tyotrack-backend/pkg/logger"
	"github.com/tyotrack/tyotrack-backend/pkg/messaging"
	"github.com/tyotrack/tyotrack-backend/pkg/permissions"
	"github.com/tyotrack/tyotrack-backend/pkg/tenant"
)

// QueueName is the queue this service consumes user events from
const QueueName = "timesheet-service.user-events"

// UserStore is where user settings are kept.
// *repository.SettingsRepository implements it.
type UserStore interface {
	GetUserSettings(ctx context.Context, userID string) (*repository.UserSettings, error)
	UpsertUserSettings(ctx context.Context, s *repository.UserSettings) error
	SoftDeleteUserSettings(ctx context.Context, userID string) error
}

// UserEventConsumer keeps user settings in step with the user service
type UserEventConsumer struct {
	consumer *messaging.Consumer
	store    UserStore
	logger   *logger.Logger
}

// NewUserEventConsumer declares the queue, binds it to user.# on the user
// exchange and registers the handlers.
func NewUserEventConsumer(rmq *messaging.RabbitMQ, store UserStore, log *logger.Logger) (*UserEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, QueueName, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeUserEvents, "user.#"); err != nil {
		return nil, err
	}

	c := NewUserEventHandlers(store, log)
	c.consumer = consumer
	c.Register(consumer.Router)
	return c, nil
}

// NewUserEventHandlers returns the handlers without a transport. Register
// them on a router to use them.
func NewUserEventHandlers(store UserStore, log *logger.Logger) *UserEventConsumer {
	if log == nil {
		log = logger.Nop()
	}
	return &UserEventConsumer{store: store, logger: log.WithComponent("user-consumer")}
}

// Register adds the user event handlers to r
func (c *UserEventConsumer) Register(r *messaging.Router) {
	r.RegisterHandler(messaging.EventUserCreated, c.handleUserUpserted)
	r.RegisterHandler(messaging.EventUserUpdated, c.handleUserUpserted)
	r.RegisterHandler(messaging.EventUserDeleted, c.handleUserDeleted)
}

// Start consumes until ctx is cancelled
func (c *UserEventConsumer) Start(ctx context.Context) error {
	if c.consumer == nil {
		return fmt.Errorf("user event consumer has no transport")
	}
	return c.consumer.Start(ctx)
}

func (c *UserEventConsumer) handleUserUpserted(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	ctx, err := tenantContext(ctx, data.TenantID, data.TenantSlug, data.TenantSchema)
	if err != nil {
		return err
	}

	existing, err := c.store.GetUserSettings(ctx, data.UserID)
	if err != nil {
		return err
	}

	settings := &repository.UserSettings{
		UserID: data.UserID,
		Role:   strings.ToUpper(data.Role),
	}
	if settings.Role == "" {
		settings.Role = permissions.RoleEmployee
	}
	if data.Name != "" {
		settings.Name = &data.Name
	}
	if data.Email != "" {
		settings.Email = &data.Email
	}

	// Events that do not carry the flag keep the current value.
	switch {
	case data.AutoApprove != nil:
		settings.IsAutoApprove = *data.AutoApprove
	case existing != nil:
		settings.IsAutoApprove = existing.IsAutoApprove
	}

	if err := c.store.UpsertUserSettings(ctx, settings); err != nil {
		return err
	}

	c.logger.Info().
		Str("event_type", event.Type).
		Str("user_id", data.UserID).
		Str("tenant_id", data.TenantID).
		Bool("auto_approve", settings.IsAutoApprove).
		Msg("user settings synced")
	return nil
}

func (c *UserEventConsumer) handleUserDeleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserDeletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	ctx, err := tenantContext(ctx, data.TenantID, data.TenantSlug, data.TenantSchema)
	if err != nil {
		return err
	}

	if err := c.store.SoftDeleteUserSettings(ctx, data.UserID); err != nil {
		return err
	}

	c.logger.Info().
		Str("user_id", data.UserID).
		Str("tenant_id", data.TenantID).
		Msg("user settings removed")
	return nil
}

func tenantContext(ctx context.Context, id, slug, schema string) (context.Context, error) {
	if !tenant.ValidSchema(schema) {
		return nil, fmt.Errorf("%w: %q", tenant.ErrInvalidSchema, schema)
	}
	return tenant.WithTenantContext(ctx, id, slug, schema), nil
}
