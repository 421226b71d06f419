package events

import (
	"context"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/domain"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/repository"
	"github.com/tyotrack/tyotrack-backend/pkg/logger"
	"github.com/tyotrack/tyotrack-backend/pkg/messaging"
)

// Source is the event source name of this service
const Source = "timesheet-service"

// Publisher is the transport the events are handed to. *messaging.Publisher
// implements it.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// TimesheetEventPublisher publishes timesheet events. Publishing never fails
// the request: errors are logged and dropped.
type TimesheetEventPublisher struct {
	publisher Publisher
	logger    *logger.Logger
}

// NewTimesheetEventPublisher declares the timesheet exchange on rmq and
// returns a publisher bound to it.
func NewTimesheetEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*TimesheetEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeTimesheetEvents, Source, log)
	if err != nil {
		return nil, err
	}
	return New(publisher, log), nil
}

// New wraps any Publisher, e.g. a test double.
func New(publisher Publisher, log *logger.Logger) *TimesheetEventPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &TimesheetEventPublisher{publisher: publisher, logger: log}
}

// PublishEntrySubmitted publishes one event for a logged shift. entries are
// the stored rows in commit order.
func (p *TimesheetEventPublisher) PublishEntrySubmitted(ctx context.Context, entries []*repository.TimeEntry) {
	if p == nil || len(entries) == 0 {
		return
	}

	first := entries[0]
	data := messaging.EntrySubmittedEvent{
		UserID:    first.UserID,
		CompanyID: first.CompanyID,
		ProjectID: first.ProjectID,
		Date:      domain.FormatDate(first.EntryDate),
		Status:    string(first.Status),
		IsSplit:   first.IsSplit,
	}
	for _, e := range entries {
		data.EntryIDs = append(data.EntryIDs, e.ID)
		data.TotalHours += e.TotalHours
		data.HasOverlap = data.HasOverlap || e.HasOverlap
	}

	if err := p.publisher.Publish(ctx, messaging.EventEntrySubmitted, data); err != nil {
		p.logger.Error().Err(err).Strs("entry_ids", data.EntryIDs).Msg("failed to publish entry submitted event")
	}
}

// PublishEntryReviewed publishes entry.approved or entry.rejected depending
// on the entry's new status.
func (p *TimesheetEventPublisher) PublishEntryReviewed(ctx context.Context, entry *repository.TimeEntry) {
	if p == nil {
		return
	}

	eventType := messaging.EventEntryApproved
	if entry.Status == domain.StatusRejected {
		eventType = messaging.EventEntryRejected
	}

	data := messaging.EntryReviewedEvent{
		EntryID:   entry.ID,
		UserID:    entry.UserID,
		CompanyID: entry.CompanyID,
		Status:    string(entry.Status),
	}
	if entry.ReviewedBy != nil {
		data.ReviewerID = *entry.ReviewedBy
	}
	if entry.ReviewedAt != nil {
		data.ReviewedAt = *entry.ReviewedAt
	}

	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("entry_id", entry.ID).Msg("failed to publish entry reviewed event")
	}
}

// PublishSettingsUpdated publishes the company's new shift settings
func (p *TimesheetEventPublisher) PublishSettingsUpdated(ctx context.Context, s *repository.CompanySettings) {
	if p == nil {
		return
	}

	data := messaging.SettingsUpdatedEvent{
		CompanyID:         s.CompanyID,
		DayStart:          s.DayStart,
		EveningStart:      s.EveningStart,
		NightStart:        s.NightStart,
		BackdateLimitDays: s.BackdateLimitDays,
	}
	if s.UpdatedBy != nil {
		data.UpdatedBy = *s.UpdatedBy
	}

	if err := p.publisher.Publish(ctx, messaging.EventSettingsUpdated, data); err != nil {
		p.logger.Error().Err(err).Str("company_id", s.CompanyID).Msg("failed to publish settings updated event")
	}
}
