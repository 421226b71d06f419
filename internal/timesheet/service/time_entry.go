package service

import (
	"context"
	"time"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/domain"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/events"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/repository"
	"github.com/tyotrack/tyotrack-backend/pkg/actor"
	"github.com/tyotrack/tyotrack-backend/pkg/errors"
	"github.com/tyotrack/tyotrack-backend/pkg/logger"
	"github.com/tyotrack/tyotrack-backend/pkg/permissions"
)

// LogTimeRequest is a shift as entered by an employee
type LogTimeRequest struct {
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string  `json:"start_time" validate:"required,hhmm"`
	EndTime     string  `json:"end_time" validate:"required,hhmm"`
	ProjectID   string  `json:"project_id" validate:"required,max=255"`
	WorkplaceID *string `json:"workplace_id,omitempty" validate:"omitempty,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// LogTimeResult is what a logged shift turned into
type LogTimeResult struct {
	Entries    []*repository.TimeEntry `json:"entries"`
	IsSplit    bool                    `json:"is_split"`
	HasOverlap bool                    `json:"has_overlap"`
	Totals     domain.ClassifiedHours  `json:"totals"`
}

// PreviewSegment is one calendar-day part of a previewed shift
type PreviewSegment struct {
	Date      string             `json:"date"`
	StartTime string             `json:"start_time"`
	EndTime   string             `json:"end_time"`
	IsSplit   bool               `json:"is_split"`
	Role      domain.SegmentRole `json:"role"`
	domain.ClassifiedHours
}

// PreviewResult shows how a shift would be stored without storing it.
// Rejection holds the error code the shift would be refused with.
type PreviewResult struct {
	Segments   []PreviewSegment       `json:"segments"`
	Totals     domain.ClassifiedHours `json:"totals"`
	Rejection  string                 `json:"rejection,omitempty"`
	HasOverlap bool                   `json:"has_overlap"`
}

// TimeEntryService handles logging and reading time entries
type TimeEntryService struct {
	entries   EntryStore
	settings  *SettingsService
	projects  *ProjectService
	publisher *events.TimesheetEventPublisher
	logger    *logger.Logger
	now       Clock
}

// NewTimeEntryService creates a new time entry service
func NewTimeEntryService(
	entries EntryStore,
	settings *SettingsService,
	projects *ProjectService,
	publisher *events.TimesheetEventPublisher,
	log *logger.Logger,
) *TimeEntryService {
	if log == nil {
		log = logger.Nop()
	}
	return &TimeEntryService{
		entries:   entries,
		settings:  settings,
		projects:  projects,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock replaces the clock used to compute today
func (s *TimeEntryService) WithClock(now Clock) *TimeEntryService {
	s.now = now
	return s
}

// ============================================================================
// LOGGING TIME
// ============================================================================

// LogTime splits, classifies, validates and stores a shift for the caller.
// The project must be an active project of the caller's company.
// Locking the user's dates, reading the existing entries and inserting
// happen in one transaction, so two submissions for the same day cannot
// both pass the overlap check. A split shift is stored as two entries or
// not at all.
func (s *TimeEntryService) LogTime(ctx context.Context, req *LogTimeRequest) (*LogTimeResult, error) {
	a, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	in, err := shiftInput(a, req)
	if err != nil {
		return nil, err
	}

	segments, err := domain.SplitShift(in.Date, in.StartTime, in.EndTime)
	if err != nil {
		return nil, clockError(err)
	}
	if err := s.projects.CheckReferences(ctx, a.CompanyID, req.ProjectID, req.WorkplaceID); err != nil {
		return nil, err
	}
	dates := domain.SegmentDates(segments)

	env, settings, err := s.environment(ctx, a)
	if err != nil {
		return nil, err
	}
	env.AutoApprove, err = s.settings.AutoApprove(ctx, a.ID)
	if err != nil {
		return nil, err
	}

	var stored []*repository.TimeEntry
	var plan domain.Plan
	err = s.entries.InTenantTx(ctx, func(ctx context.Context) error {
		if err := s.entries.LockUserDates(ctx, a.ID, dates); err != nil {
			return err
		}

		existing, err := s.entries.FindEntries(ctx, a.ID, dates, domain.LiveStatuses())
		if err != nil {
			return err
		}
		env.Existing = existingEntries(existing)

		plan, err = domain.BuildPlan(in, env)
		if err != nil {
			return clockError(err)
		}
		if !plan.Accepted() {
			return rejectionError(plan, settings)
		}

		stored = make([]*repository.TimeEntry, 0, len(plan.Records))
		return domain.Commit(plan.Records, func(rec *domain.Record) (string, error) {
			entry := repository.FromRecord(rec)
			if err := s.entries.CreateEntry(ctx, entry); err != nil {
				return "", err
			}
			stored = append(stored, entry)
			return entry.ID, nil
		})
	})
	if err != nil {
		if code := errors.CodeOf(err); code != "" {
			s.logger.Info().
				Str("user_id", a.ID).
				Str("date", req.Date).
				Str("code", code).
				Msg("time entry refused")
		}
		return nil, err
	}

	result := &LogTimeResult{
		Entries:    stored,
		IsSplit:    plan.IsSplit(),
		HasOverlap: plan.Validation.HasOverlap(),
		Totals:     domain.Totals(plan.Records),
	}

	s.logger.Info().
		Str("user_id", a.ID).
		Str("company_id", a.CompanyID).
		Str("date", req.Date).
		Bool("is_split", result.IsSplit).
		Bool("has_overlap", result.HasOverlap).
		Float64("total_hours", result.Totals.Total).
		Str("status", string(stored[0].Status)).
		Msg("time logged")

	s.publisher.PublishEntrySubmitted(ctx, stored)
	return result, nil
}

// Preview runs a shift through the core against the caller's current
// entries without storing anything.
func (s *TimeEntryService) Preview(ctx context.Context, req *LogTimeRequest) (*PreviewResult, error) {
	a, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	in, err := shiftInput(a, req)
	if err != nil {
		return nil, err
	}

	segments, err := domain.SplitShift(in.Date, in.StartTime, in.EndTime)
	if err != nil {
		return nil, clockError(err)
	}
	if err := s.projects.CheckReferences(ctx, a.CompanyID, req.ProjectID, req.WorkplaceID); err != nil {
		return nil, err
	}

	env, settings, err := s.environment(ctx, a)
	if err != nil {
		return nil, err
	}

	existing, err := s.entries.FindEntries(ctx, a.ID, domain.SegmentDates(segments), domain.LiveStatuses())
	if err != nil {
		return nil, err
	}
	env.Existing = existingEntries(existing)

	plan, err := domain.BuildPlan(in, env)
	if err != nil {
		return nil, clockError(err)
	}

	result := &PreviewResult{HasOverlap: plan.Validation.HasOverlap()}
	for _, seg := range plan.Segments {
		start, end := displayTimes(seg)
		result.Segments = append(result.Segments, PreviewSegment{
			Date:            domain.FormatDate(seg.Date),
			StartTime:       start,
			EndTime:         end,
			IsSplit:         seg.IsSplit,
			Role:            seg.Role,
			ClassifiedHours: seg.Hours,
		})
		result.Totals = result.Totals.Add(seg.Hours)
	}
	if !plan.Accepted() {
		result.Rejection = errors.CodeOf(rejectionError(plan, settings))
	}
	return result, nil
}

// environment builds everything but the existing entries and auto-approve
// flag for a submission by a.
func (s *TimeEntryService) environment(ctx context.Context, a *actor.Actor) (domain.Environment, *repository.CompanySettings, error) {
	settings, err := s.settings.Resolve(ctx, a.CompanyID)
	if err != nil {
		return domain.Environment{}, nil, err
	}

	return domain.Environment{
		Boundaries: s.settings.Boundaries(settings),
		Policy:     settings.Policy(),
		Today:      domain.DateOf(s.now().In(settings.Location())),
	}, settings, nil
}

func shiftInput(a *actor.Actor, req *LogTimeRequest) (domain.ShiftInput, error) {
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		return domain.ShiftInput{}, errors.Validation(map[string]string{"date": "must be a date in YYYY-MM-DD format"})
	}

	return domain.ShiftInput{
		Submission: domain.Submission{
			UserID:      a.ID,
			CompanyID:   a.CompanyID,
			ProjectID:   req.ProjectID,
			WorkplaceID: req.WorkplaceID,
			Description: req.Description,
		},
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}, nil
}

func existingEntries(entries []*repository.TimeEntry) []domain.ExistingEntry {
	out := make([]domain.ExistingEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Existing()
	}
	return out
}

func displayTimes(seg domain.ClassifiedSegment) (string, string) {
	return domain.FormatClock(seg.StartMinutes), domain.FormatClock(seg.EndMinutes)
}

// rejectionError converts a refused plan to the client error
func rejectionError(plan domain.Plan, settings *repository.CompanySettings) error {
	v := plan.Validation
	date := domain.FormatDate(plan.Segments[v.SegmentIndex].Date)

	switch v.Reason {
	case domain.ReasonFutureDate:
		return errors.FutureDate(date)
	case domain.ReasonBackdateExceeded:
		return errors.BackdateExceeded(date, settings.BackdateLimitDays)
	case domain.ReasonOverlap:
		var conflicting string
		for _, o := range v.Overlaps {
			if o.SegmentIndex == v.SegmentIndex {
				conflicting = o.EntryID
				break
			}
		}
		return errors.OverlapDetected(date, conflicting)
	default:
		return errors.Internal("unknown rejection reason " + string(v.Reason))
	}
}

// ============================================================================
// READING
// ============================================================================

// GetEntry returns an entry the caller owns, or any entry of the company
// when the caller may approve.
func (s *TimeEntryService) GetEntry(ctx context.Context, id string) (*repository.TimeEntry, error) {
	a, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	entry, err := s.entries.GetEntryByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if entry.UserID != a.ID && !a.Can(permissions.EntriesReadAll) && !a.Can(permissions.EntriesApprove) {
		return nil, errors.NotFound("time_entry")
	}
	return entry, nil
}

// ListEntries returns the caller's entries between from and to inclusive.
// Zero bounds default to the current month in the company time zone.
func (s *TimeEntryService) ListEntries(ctx context.Context, from, to time.Time) ([]*repository.TimeEntry, error) {
	a, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	if from.IsZero() || to.IsZero() {
		settings, err := s.settings.Resolve(ctx, a.CompanyID)
		if err != nil {
			return nil, err
		}
		month := domain.MonthRange(domain.DateOf(s.now().In(settings.Location())))
		if from.IsZero() {
			from = month.From
		}
		if to.IsZero() {
			to = month.To
		}
	}
	if to.Before(from) {
		return nil, errors.Validation(map[string]string{"to": "must not be before from"})
	}

	entries, err := s.entries.ListEntriesForUser(ctx, a.ID, from, to)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*repository.TimeEntry{}
	}
	return entries, nil
}
