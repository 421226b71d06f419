package service

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/domain"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/events"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/repository"
	"github.com/tyotrack/tyotrack-backend/pkg/errors"
	"github.com/tyotrack/tyotrack-backend/pkg/logger"
)

// ApprovalService handles the review of pending entries
type ApprovalService struct {
	entries   EntryStore
	publisher *events.TimesheetEventPublisher
	logger    *logger.Logger
	now       Clock
}

// NewApprovalService creates a new approval service
func NewApprovalService(entries EntryStore, publisher *events.TimesheetEventPublisher, log *logger.Logger) *ApprovalService {
	if log == nil {
		log = logger.Nop()
	}
	return &ApprovalService{
		entries:   entries,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock replaces the clock used to stamp reviews
func (s *ApprovalService) WithClock(now Clock) *ApprovalService {
	s.now = now
	return s
}

// ListPending returns the pending entries of the caller's company
func (s *ApprovalService) ListPending(ctx context.Context) ([]*repository.TimeEntry, error) {
	a, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.entries.ListPending(ctx, a.CompanyID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*repository.TimeEntry{}
	}
	return entries, nil
}

// Approve moves a pending entry to APPROVED
func (s *ApprovalService) Approve(ctx context.Context, id string) (*repository.TimeEntry, error) {
	return s.review(ctx, id, domain.StatusApproved)
}

// Reject moves a pending entry to REJECTED
func (s *ApprovalService) Reject(ctx context.Context, id string) (*repository.TimeEntry, error) {
	return s.review(ctx, id, domain.StatusRejected)
}

func (s *ApprovalService) review(ctx context.Context, id string, to domain.Status) (*repository.TimeEntry, error) {
	a, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	entry, err := s.entries.GetEntryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.CompanyID != a.CompanyID {
		return nil, errors.NotFound("time_entry")
	}

	from := entry.Status
	if _, err := from.Transition(to); err != nil {
		return nil, errors.InvalidStatusTransition(string(from), string(to))
	}

	updated, err := s.entries.UpdateStatus(ctx, id, from, to, a.ID, s.now().UTC())
	if stderrors.Is(err, repository.ErrStatusConflict) {
		// Reviewed by someone else between the read and the update.
		return nil, errors.InvalidStatusTransition(string(from), string(to))
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("entry_id", id).
		Str("user_id", updated.UserID).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("reviewer_id", a.ID).
		Msg("time entry reviewed")

	s.publisher.PublishEntryReviewed(ctx, updated)
	return updated, nil
}
