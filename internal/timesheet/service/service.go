package service

import (
	"context"
	"time"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/domain"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/repository"
	"github.com/tyotrack/tyotrack-backend/pkg/actor"
	"github.com/tyotrack/tyotrack-backend/pkg/errors"
)

// EntryStore is the time entry persistence used by the services.
// *repository.TimeEntryRepository implements it.
type EntryStore interface {
	InTenantTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockUserDates(ctx context.Context, userID string, dates []time.Time) error
	FindEntries(ctx context.Context, userID string, dates []time.Time, statuses []domain.Status) ([]*repository.TimeEntry, error)
	CreateEntry(ctx context.Context, entry *repository.TimeEntry) error
	GetEntryByID(ctx context.Context, id string) (*repository.TimeEntry, error)
	ListEntriesForUser(ctx context.Context, userID string, from, to time.Time) ([]*repository.TimeEntry, error)
	ListPending(ctx context.Context, companyID string) ([]*repository.TimeEntry, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.Status, reviewerID string, at time.Time) (*repository.TimeEntry, error)
}

// SettingsStore is the settings persistence used by the services.
// *repository.SettingsRepository implements it.
type SettingsStore interface {
	GetCompanySettings(ctx context.Context, companyID string) (*repository.CompanySettings, error)
	UpsertCompanySettings(ctx context.Context, s *repository.CompanySettings) error
	GetUserSettings(ctx context.Context, userID string) (*repository.UserSettings, error)
	SetAutoApprove(ctx context.Context, userID string, autoApprove bool) (bool, error)
}

// ProjectStore is the project and workplace persistence used by the
// services. *repository.ProjectRepository implements it.
type ProjectStore interface {
	CreateProject(ctx context.Context, p *repository.Project) error
	GetProject(ctx context.Context, id string) (*repository.Project, error)
	ListProjects(ctx context.Context, companyID string) ([]*repository.Project, error)
	UpdateProject(ctx context.Context, p *repository.Project) error
	ProjectTotals(ctx context.Context, companyID string) (map[string]domain.ProjectHours, error)
	ListProjectEntries(ctx context.Context, projectID string) ([]*repository.TimeEntry, error)
	CreateWorkplace(ctx context.Context, w *repository.Workplace) error
	GetWorkplace(ctx context.Context, id string) (*repository.Workplace, error)
	ListWorkplaces(ctx context.Context, companyID string) ([]*repository.Workplace, error)
}

var (
	_ EntryStore    = (*repository.TimeEntryRepository)(nil)
	_ SettingsStore = (*repository.SettingsRepository)(nil)
	_ ProjectStore  = (*repository.ProjectRepository)(nil)
)

// Clock returns the current instant. Services read time only through it.
type Clock func() time.Time

func requireActor(ctx context.Context) (*actor.Actor, error) {
	a := actor.FromContext(ctx)
	if a == nil || a.IsSystem() {
		return nil, errors.Unauthorized("authentication required")
	}
	return a, nil
}
