package service

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/domain"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/events"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/repository"
	"github.com/tyotrack/tyotrack-backend/pkg/config"
	"github.com/tyotrack/tyotrack-backend/pkg/errors"
	"github.com/tyotrack/tyotrack-backend/pkg/logger"
)

// UpdateSettingsRequest replaces a company's shift settings. Omitted
// optional fields keep their current value.
type UpdateSettingsRequest struct {
	DayStart           string  `json:"day_start" validate:"required,hhmm"`
	EveningStart       string  `json:"evening_start" validate:"required,hhmm"`
	NightStart         string  `json:"night_start" validate:"required,hhmm"`
	BackdateLimitDays  *int    `json:"backdate_limit_days,omitempty" validate:"omitempty,min=0,max=3650"`
	RejectOverlaps     *bool   `json:"reject_overlaps,omitempty"`
	AllowFutureEntries *bool   `json:"allow_future_entries,omitempty"`
	Timezone           *string `json:"timezone,omitempty" validate:"omitempty,max=64"`
}

// SettingsService handles company shift settings and user auto-approval
type SettingsService struct {
	store     SettingsStore
	defaults  config.TimesheetConfig
	publisher *events.TimesheetEventPublisher
	logger    *logger.Logger
}

// NewSettingsService creates a new settings service. defaults apply to
// companies that never saved settings.
func NewSettingsService(
	store SettingsStore,
	defaults config.TimesheetConfig,
	publisher *events.TimesheetEventPublisher,
	log *logger.Logger,
) *SettingsService {
	if log == nil {
		log = logger.Nop()
	}
	return &SettingsService{
		store:     store,
		defaults:  defaults,
		publisher: publisher,
		logger:    log,
	}
}

// Defaults returns the configured settings for companyID
func (s *SettingsService) Defaults(companyID string) *repository.CompanySettings {
	d := repository.DefaultCompanySettings(companyID)
	if s.defaults.DayStart != "" {
		d.DayStart = s.defaults.DayStart
	}
	if s.defaults.EveningStart != "" {
		d.EveningStart = s.defaults.EveningStart
	}
	if s.defaults.NightStart != "" {
		d.NightStart = s.defaults.NightStart
	}
	if s.defaults.BackdateLimitDays != nil {
		d.BackdateLimitDays = *s.defaults.BackdateLimitDays
	}
	if s.defaults.Timezone != "" {
		d.Timezone = s.defaults.Timezone
	}
	d.RejectOverlaps = s.defaults.RejectOverlaps
	return d
}

// Resolve returns the company's saved settings, or the defaults when there
// are none.
func (s *SettingsService) Resolve(ctx context.Context, companyID string) (*repository.CompanySettings, error) {
	stored, err := s.store.GetCompanySettings(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return s.Defaults(companyID), nil
	}
	return stored, nil
}

// Boundaries parses the settings' boundaries. Unparseable stored values fall
// back to the defaults so logging time keeps working.
func (s *SettingsService) Boundaries(settings *repository.CompanySettings) domain.ShiftBoundaries {
	b, err := settings.Boundaries()
	if err != nil {
		s.logger.Warn().Err(err).Str("company_id", settings.CompanyID).Msg("stored shift boundaries invalid, using defaults")
		return domain.DefaultBoundaries()
	}
	return b
}

// AutoApprove reports whether the user's entries are approved on creation.
// Unknown users are not auto-approved.
func (s *SettingsService) AutoApprove(ctx context.Context, userID string) (bool, error) {
	u, err := s.store.GetUserSettings(ctx, userID)
	if err != nil {
		return false, err
	}
	return u != nil && u.IsAutoApprove, nil
}

// Get returns the settings of the caller's company
func (s *SettingsService) Get(ctx context.Context) (*repository.CompanySettings, error) {
	a, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return s.Resolve(ctx, a.CompanyID)
}

// Update validates and saves the caller's company settings
func (s *SettingsService) Update(ctx context.Context, req *UpdateSettingsRequest) (*repository.CompanySettings, error) {
	a, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	current, err := s.Resolve(ctx, a.CompanyID)
	if err != nil {
		return nil, err
	}

	b, err := domain.ParseBoundaries(req.DayStart, req.EveningStart, req.NightStart)
	if err != nil {
		return nil, clockError(err)
	}
	if !b.Ordered() {
		return nil, errors.Validation(map[string]string{
			"evening_start": "must be after day_start and before night_start",
		})
	}

	next := *current
	next.DayStart = domain.FormatClock(b.DayStart)
	next.EveningStart = domain.FormatClock(b.EveningStart)
	next.NightStart = domain.FormatClock(b.NightStart)
	if req.BackdateLimitDays != nil {
		if *req.BackdateLimitDays < 0 {
			return nil, errors.Validation(map[string]string{"backdate_limit_days": "must not be negative"})
		}
		next.BackdateLimitDays = *req.BackdateLimitDays
	}
	if req.RejectOverlaps != nil {
		next.RejectOverlaps = *req.RejectOverlaps
	}
	if req.AllowFutureEntries != nil {
		next.AllowFutureEntries = *req.AllowFutureEntries
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil || *req.Timezone == "" {
			return nil, errors.Validation(map[string]string{"timezone": "must be an IANA time zone name"})
		}
		next.Timezone = *req.Timezone
	}
	updatedBy := a.ID
	next.UpdatedBy = &updatedBy

	if err := s.store.UpsertCompanySettings(ctx, &next); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("company_id", next.CompanyID).
		Str("boundaries", b.String()).
		Int("backdate_limit_days", next.BackdateLimitDays).
		Str("updated_by", a.ID).
		Msg("shift settings updated")

	s.publisher.PublishSettingsUpdated(ctx, &next)
	return &next, nil
}

// SetAutoApprove changes whether a user's entries skip review
func (s *SettingsService) SetAutoApprove(ctx context.Context, userID string, autoApprove bool) error {
	a, err := requireActor(ctx)
	if err != nil {
		return err
	}

	found, err := s.store.SetAutoApprove(ctx, userID, autoApprove)
	if err != nil {
		return err
	}
	if !found {
		return errors.NotFound("user")
	}

	s.logger.Info().
		Str("user_id", userID).
		Bool("auto_approve", autoApprove).
		Str("changed_by", a.ID).
		Msg("auto-approve changed")
	return nil
}

// clockError converts a domain clock error to the client error
func clockError(err error) error {
	var ce *domain.ClockError
	if stderrors.As(err, &ce) {
		return errors.InvalidTimeFormat(ce.Field, ce.Value)
	}
	return err
}
