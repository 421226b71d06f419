package service

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/domain"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/repository"
	"github.com/tyotrack/tyotrack-backend/pkg/actor"
	"github.com/tyotrack/tyotrack-backend/pkg/errors"
	"github.com/tyotrack/tyotrack-backend/pkg/logger"
	"github.com/tyotrack/tyotrack-backend/pkg/permissions"
)

// CreateProjectRequest creates a project. The code is generated.
type CreateProjectRequest struct {
	Name           string   `json:"name" validate:"required,max=255"`
	Description    *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	StartDate      *string  `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate        *string  `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty" validate:"omitempty,min=0"`
}

// UpdateProjectRequest replaces a project's fields. Omitted dates and
// estimate keep their current value.
type UpdateProjectRequest struct {
	Name           string   `json:"name" validate:"required,max=255"`
	Code           string   `json:"code" validate:"required,max=32"`
	Status         string   `json:"status" validate:"required,oneof=ACTIVE ARCHIVED COMPLETED"`
	Description    *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	StartDate      *string  `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate        *string  `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty" validate:"omitempty,min=0"`
}

// CreateWorkplaceRequest creates a workplace. The code is generated.
type CreateWorkplaceRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// ProjectSummary is a project with its logged effort
type ProjectSummary struct {
	*repository.Project
	domain.ProjectHours
}

// TeamMember is one employee's effort on a project
type TeamMember struct {
	UserID       string  `json:"user_id"`
	Name         *string `json:"name,omitempty"`
	TotalHours   float64 `json:"total_hours"`
	EntryCount   int     `json:"entry_count"`
	LastActivity string  `json:"last_activity"`
}

// ProjectDetail is a project with its effort broken down per employee
type ProjectDetail struct {
	*repository.Project
	domain.ProjectHours
	Team []TeamMember `json:"team"`
}

// ProjectService manages projects and workplaces
type ProjectService struct {
	store    ProjectStore
	settings *SettingsService
	logger   *logger.Logger
	now      Clock
}

// NewProjectService creates a new project service
func NewProjectService(store ProjectStore, settings *SettingsService, log *logger.Logger) *ProjectService {
	if log == nil {
		log = logger.Nop()
	}
	return &ProjectService{store: store, settings: settings, logger: log, now: time.Now}
}

// WithClock replaces the clock that dates new projects without a start date
func (s *ProjectService) WithClock(now Clock) *ProjectService {
	s.now = now
	return s
}

// ============================================================================
// PROJECTS
// ============================================================================

// Create stores a new ACTIVE project for the caller's company. Without a
// start date the project starts today in the company time zone.
func (s *ProjectService) Create(ctx context.Context, req *CreateProjectRequest) (*repository.Project, error) {
	a, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.Resolve(ctx, a.CompanyID)
	if err != nil {
		return nil, err
	}

	createdBy := a.ID
	p := &repository.Project{
		CompanyID:      a.CompanyID,
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		Status:         domain.ProjectActive,
		StartDate:      domain.DateOf(s.now().In(settings.Location())),
		EstimatedHours: req.EstimatedHours,
		CreatedBy:      &createdBy,
	}
	if err := applyDates(p, req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("project_id", p.ID).
		Str("code", p.Code).
		Str("company_id", p.CompanyID).
		Str("created_by", a.ID).
		Msg("project created")
	return p, nil
}

// Update replaces a project of the caller's company
func (s *ProjectService) Update(ctx context.Context, id string, req *UpdateProjectRequest) (*repository.Project, error) {
	a, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.companyProject(ctx, a, id)
	if err != nil {
		return nil, err
	}

	status, err := domain.ParseProjectStatus(req.Status)
	if err != nil {
		return nil, errors.Validation(map[string]string{"status": "must be one of: ACTIVE, ARCHIVED, COMPLETED"})
	}

	next := *p
	next.Name = strings.TrimSpace(req.Name)
	next.Code = strings.TrimSpace(req.Code)
	next.Status = status
	next.Description = req.Description
	if req.EstimatedHours != nil {
		next.EstimatedHours = req.EstimatedHours
	}
	if err := applyDates(&next, req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	if err := s.store.UpdateProject(ctx, &next); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("project_id", next.ID).
		Str("status", string(next.Status)).
		Str("updated_by", a.ID).
		Msg("project updated")
	return &next, nil
}

// ListWithStats lists the company's projects, newest first, each with its
// live hours and number of distinct employees.
func (s *ProjectService) ListWithStats(ctx context.Context) ([]ProjectSummary, error) {
	a, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	projects, err := s.store.ListProjects(ctx, a.CompanyID)
	if err != nil {
		return nil, err
	}
	totals, err := s.store.ProjectTotals(ctx, a.CompanyID)
	if err != nil {
		return nil, err
	}

	out := make([]ProjectSummary, len(projects))
	for i, p := range projects {
		out[i] = ProjectSummary{Project: p, ProjectHours: totals[p.ID]}
	}
	return out, nil
}

// Get returns a project with its team. Callers who may not review other
// employees' entries only see their own row of the team.
func (s *ProjectService) Get(ctx context.Context, id string) (*ProjectDetail, error) {
	a, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.companyProject(ctx, a, id)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.ListProjectEntries(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	records := make([]domain.Record, len(entries))
	names := make(map[string]*string)
	for i, e := range entries {
		records[i] = e.Record()
		if e.UserName != nil {
			names[e.UserID] = e.UserName
		}
	}

	seesTeam := a.Can(permissions.EntriesReadAll) || a.Can(permissions.EntriesApprove)
	team := make([]TeamMember, 0)
	for _, m := range domain.TeamHours(records) {
		if !seesTeam && m.UserID != a.ID {
			continue
		}
		team = append(team, TeamMember{
			UserID:       m.UserID,
			Name:         names[m.UserID],
			TotalHours:   m.TotalHours,
			EntryCount:   m.EntryCount,
			LastActivity: domain.FormatDate(m.LastEntry),
		})
	}

	return &ProjectDetail{
		Project:      p,
		ProjectHours: domain.SummarizeProjects(records)[p.ID],
		Team:         team,
	}, nil
}

// companyProject loads a project and hides it from other companies
func (s *ProjectService) companyProject(ctx context.Context, a *actor.Actor, id string) (*repository.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.CompanyID != a.CompanyID {
		return nil, errors.NotFound("project")
	}
	return p, nil
}

func applyDates(p *repository.Project, start, end *string) error {
	if start != nil {
		d, err := domain.ParseDate(*start)
		if err != nil {
			return errors.Validation(map[string]string{"start_date": "must be a date in YYYY-MM-DD format"})
		}
		p.StartDate = d
	}
	if end != nil {
		d, err := domain.ParseDate(*end)
		if err != nil {
			return errors.Validation(map[string]string{"end_date": "must be a date in YYYY-MM-DD format"})
		}
		p.EndDate = &d
	}
	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		return errors.Validation(map[string]string{"end_date": "must not be before start_date"})
	}
	return nil
}

// ============================================================================
// WORKPLACES
// ============================================================================

// CreateWorkplace stores a new workplace for the caller's company
func (s *ProjectService) CreateWorkplace(ctx context.Context, req *CreateWorkplaceRequest) (*repository.Workplace, error) {
	a, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	w := &repository.Workplace{CompanyID: a.CompanyID, Name: strings.TrimSpace(req.Name)}
	if err := s.store.CreateWorkplace(ctx, w); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("workplace_id", w.ID).
		Str("code", w.Code).
		Str("created_by", a.ID).
		Msg("workplace created")
	return w, nil
}

// ListWorkplaces lists the caller's company workplaces by name
func (s *ProjectService) ListWorkplaces(ctx context.Context) ([]*repository.Workplace, error) {
	a, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	ws, err := s.store.ListWorkplaces(ctx, a.CompanyID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		ws = []*repository.Workplace{}
	}
	return ws, nil
}

// ============================================================================
// REFERENCES
// ============================================================================

// CheckReferences verifies that time may be logged against projectID and,
// when set, workplaceID within companyID. Failures are validation errors on
// the offending field.
func (s *ProjectService) CheckReferences(ctx context.Context, companyID, projectID string, workplaceID *string) error {
	p, err := s.store.GetProject(ctx, projectID)
	if stderrors.Is(err, errors.ErrNotFound) || (err == nil && p.CompanyID != companyID) {
		return errors.Validation(map[string]string{"project_id": "does not match a project of your company"})
	}
	if err != nil {
		return err
	}
	if !p.Status.AcceptsTime() {
		return errors.Validation(map[string]string{"project_id": "project is " + strings.ToLower(string(p.Status))})
	}

	if workplaceID == nil {
		return nil
	}
	w, err := s.store.GetWorkplace(ctx, *workplaceID)
	if stderrors.Is(err, errors.ErrNotFound) || (err == nil && w.CompanyID != companyID) {
		return errors.Validation(map[string]string{"workplace_id": "does not match a workplace of your company"})
	}
	return err
}
