package service

import (
	"context"
	"time"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/domain"
	"github.com/tyotrack/tyotrack-backend/pkg/errors"
)

// MonthLayout is the format of the stats month parameter
const MonthLayout = "2006-01"

// Stats is the hours summary shown on the employee dashboard. Rejected
// entries are not counted.
type Stats struct {
	Month         string              `json:"month"`
	SelectedMonth domain.HoursSummary `json:"selected_month"`
	ThisWeek      domain.HoursSummary `json:"this_week"`
	ThisMonth     domain.HoursSummary `json:"this_month"`
}

// StatsService aggregates a user's logged hours
type StatsService struct {
	entries  EntryStore
	settings *SettingsService
	now      Clock
}

// NewStatsService creates a new stats service
func NewStatsService(entries EntryStore, settings *SettingsService) *StatsService {
	return &StatsService{entries: entries, settings: settings, now: time.Now}
}

// WithClock replaces the clock used to find the current week and month
func (s *StatsService) WithClock(now Clock) *StatsService {
	s.now = now
	return s
}

// Get summarises the caller's hours for month ("YYYY-MM", empty for the
// current month), the current week and the current month.
func (s *StatsService) Get(ctx context.Context, month string) (*Stats, error) {
	a, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.Resolve(ctx, a.CompanyID)
	if err != nil {
		return nil, err
	}
	today := domain.DateOf(s.now().In(settings.Location()))

	selected := today
	if month != "" {
		m, err := time.Parse(MonthLayout, month)
		if err != nil {
			return nil, errors.Validation(map[string]string{"month": "must be in YYYY-MM format"})
		}
		selected = m
	}

	selectedRange := domain.MonthRange(selected)
	weekRange := domain.WeekRange(today)
	monthRange := domain.MonthRange(today)

	current, err := s.records(ctx, a.ID, weekRange, monthRange)
	if err != nil {
		return nil, err
	}
	inSelected := current
	if !selectedRange.From.Equal(monthRange.From) {
		if inSelected, err = s.records(ctx, a.ID, selectedRange); err != nil {
			return nil, err
		}
	}

	return &Stats{
		Month:         selectedRange.From.Format(MonthLayout),
		SelectedMonth: domain.Summarize(inSelected, selectedRange),
		ThisWeek:      domain.Summarize(current, weekRange),
		ThisMonth:     domain.Summarize(current, monthRange),
	}, nil
}

// records loads the user's entries covering every range
func (s *StatsService) records(ctx context.Context, userID string, ranges ...domain.DateRange) ([]domain.Record, error) {
	from, to := span(ranges...)
	entries, err := s.entries.ListEntriesForUser(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	records := make([]domain.Record, len(entries))
	for i, e := range entries {
		records[i] = e.Record()
	}
	return records, nil
}

// span returns the smallest range covering every range
func span(ranges ...domain.DateRange) (time.Time, time.Time) {
	from, to := ranges[0].From, ranges[0].To
	for _, r := range ranges[1:] {
		if r.From.Before(from) {
			from = r.From
		}
		if r.To.After(to) {
			to = r.To
		}
	}
	return from, to
}
