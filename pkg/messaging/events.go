package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// User events (consumed)
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"

	// Timesheet events (published)
	EventEntrySubmitted  = "timesheet.entry.submitted"
	EventEntryApproved   = "timesheet.entry.approved"
	EventEntryRejected   = "timesheet.entry.rejected"
	EventSettingsUpdated = "timesheet.settings.updated"
)

// Exchange names
const (
	ExchangeUserEvents      = "user.events"
	ExchangeTimesheetEvents = "timesheet.events"
)

// Event is the envelope for every message on the bus
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// ============================================================================
// USER EVENTS
// ============================================================================

// UserEvent is the payload of user.created and user.updated. Fields the
// timesheet service does not use are ignored.
type UserEvent struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	AutoApprove *bool  `json:"auto_approve,omitempty"`

	TenantID     string `json:"tenant_id"`
	TenantSlug   string `json:"tenant_slug"`
	TenantSchema string `json:"tenant_schema"`
}

// UserDeletedEvent is published when a user is deleted
type UserDeletedEvent struct {
	UserID string `json:"user_id"`

	TenantID     string `json:"tenant_id"`
	TenantSlug   string `json:"tenant_slug"`
	TenantSchema string `json:"tenant_schema"`
}

// ============================================================================
// TIMESHEET EVENTS
// ============================================================================

// EntrySubmittedEvent is published once per logged shift. Split shifts list
// both entry IDs, first part first.
type EntrySubmittedEvent struct {
	EntryIDs   []string `json:"entry_ids"`
	UserID     string   `json:"user_id"`
	CompanyID  string   `json:"company_id"`
	ProjectID  string   `json:"project_id"`
	Date       string   `json:"date"`
	Status     string   `json:"status"`
	IsSplit    bool     `json:"is_split"`
	HasOverlap bool     `json:"has_overlap"`
	TotalHours float64  `json:"total_hours"`
}

// EntryReviewedEvent is published when an entry is approved or rejected
type EntryReviewedEvent struct {
	EntryID    string    `json:"entry_id"`
	UserID     string    `json:"user_id"`
	CompanyID  string    `json:"company_id"`
	Status     string    `json:"status"`
	ReviewerID string    `json:"reviewer_id"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// SettingsUpdatedEvent is published when a company changes its shift settings
type SettingsUpdatedEvent struct {
	CompanyID         string `json:"company_id"`
	DayStart          string `json:"day_start"`
	EveningStart      string `json:"evening_start"`
	NightStart        string `json:"night_start"`
	BackdateLimitDays int    `json:"backdate_limit_days"`
	UpdatedBy         string `json:"updated_by"`
}
