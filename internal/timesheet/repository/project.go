package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/domain"
	"github.com/tyotrack/tyotrack-backend/pkg/database"
	"github.com/tyotrack/tyotrack-backend/pkg/errors"
	"github.com/tyotrack/tyotrack-backend/pkg/tenant"
)

// Project is something employees log time against
type Project struct {
	ID             string               `db:"id" json:"id"`
	CompanyID      string               `db:"company_id" json:"company_id"`
	Name           string               `db:"name" json:"name"`
	Code           string               `db:"code" json:"code"`
	Description    *string              `db:"description" json:"description,omitempty"`
	Status         domain.ProjectStatus `db:"status" json:"status"`
	StartDate      time.Time            `db:"start_date" json:"start_date"`
	EndDate        *time.Time           `db:"end_date" json:"end_date,omitempty"`
	EstimatedHours *float64             `db:"estimated_hours" json:"estimated_hours,omitempty"`
	CreatedBy      *string              `db:"created_by" json:"created_by,omitempty"`
	CreatedAt      time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `db:"updated_at" json:"updated_at"`
}

// Workplace is a location time can be logged at
type Workplace struct {
	ID        string    `db:"id" json:"id"`
	CompanyID string    `db:"company_id" json:"company_id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// projectTotal is one row of ProjectTotals
type projectTotal struct {
	ProjectID     string  `db:"project_id"`
	TotalHours    float64 `db:"total_hours"`
	EmployeeCount int     `db:"employee_count"`
}

const projectColumns = `
	id, company_id, name, code, description, status, start_date, end_date,
	estimated_hours, created_by, created_at, updated_at`

// ProjectRepository handles project and workplace persistence
type ProjectRepository struct {
	db *database.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *database.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) inTenant(ctx context.Context, fn func(ctx context.Context) error) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}
	return r.db.WithTenantSchema(ctx, tenantSchema, fn)
}

// nextCode takes the next number of prefix. Must run inside inTenant.
func (r *ProjectRepository) nextCode(ctx context.Context, prefix string) (string, error) {
	var seq int
	err := r.db.GetContext(ctx, &seq, `
		INSERT INTO code_counters (prefix, seq) VALUES ($1, 1)
		ON CONFLICT (prefix) DO UPDATE SET seq = code_counters.seq + 1
		RETURNING seq`, prefix)
	if err != nil {
		return "", err
	}
	return domain.FormatCode(prefix, seq), nil
}

// ============================================================================
// PROJECTS
// ============================================================================

// CreateProject inserts the project, assigning its ID and, when empty, the
// next generated code.
func (r *ProjectRepository) CreateProject(ctx context.Context, p *Project) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	return r.inTenant(ctx, func(ctx context.Context) error {
		if p.Code == "" {
			code, err := r.nextCode(ctx, domain.CodePrefixProject)
			if err != nil {
				return err
			}
			p.Code = code
		}

		query := `
			INSERT INTO projects (
				id, company_id, name, code, description, status, start_date,
				end_date, estimated_hours, created_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at, updated_at
		`
		err := r.db.QueryRowxContext(ctx, query,
			p.ID, p.CompanyID, p.Name, p.Code, p.Description, p.Status, domain.FormatDate(p.StartDate),
			formatOptionalDate(p.EndDate), p.EstimatedHours, p.CreatedBy,
		).Scan(&p.CreatedAt, &p.UpdatedAt)
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	})
}

// GetProject gets a project by ID. IDs that are not UUIDs are not found.
func (r *ProjectRepository) GetProject(ctx context.Context, id string) (*Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NotFound("project")
	}

	var p Project
	err := r.inTenant(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &p, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	})
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("project")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects lists the company's projects, newest first
func (r *ProjectRepository) ListProjects(ctx context.Context, companyID string) ([]*Project, error) {
	var projects []*Project
	err := r.inTenant(ctx, func(ctx context.Context) error {
		query := `SELECT ` + projectColumns + `
			FROM projects
			WHERE company_id = $1
			ORDER BY created_at DESC`
		return r.db.SelectContext(ctx, &projects, query, companyID)
	})
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// UpdateProject writes every editable field of p
func (r *ProjectRepository) UpdateProject(ctx context.Context, p *Project) error {
	return r.inTenant(ctx, func(ctx context.Context) error {
		query := `
			UPDATE projects
			SET name = $3, code = $4, description = $5, status = $6, start_date = $7,
				end_date = $8, estimated_hours = $9, updated_at = NOW()
			WHERE id = $1 AND company_id = $2
			RETURNING updated_at
		`
		err := r.db.QueryRowxContext(ctx, query,
			p.ID, p.CompanyID, p.Name, p.Code, p.Description, p.Status, domain.FormatDate(p.StartDate),
			formatOptionalDate(p.EndDate), p.EstimatedHours,
		).Scan(&p.UpdatedAt)
		if err == sql.ErrNoRows {
			return errors.NotFound("project")
		}
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	})
}

// ============================================================================
// PROJECT HOURS
// ============================================================================

// ProjectTotals sums the live hours and distinct employees per project of
// the company. Projects without live entries are absent.
func (r *ProjectRepository) ProjectTotals(ctx context.Context, companyID string) (map[string]domain.ProjectHours, error) {
	var rows []projectTotal
	err := r.inTenant(ctx, func(ctx context.Context) error {
		query := `
			SELECT project_id,
				COALESCE(SUM(total_hours), 0) AS total_hours,
				COUNT(DISTINCT user_id) AS employee_count
			FROM time_entries
			WHERE company_id = $1 AND status <> $2
			GROUP BY project_id`
		return r.db.SelectContext(ctx, &rows, query, companyID, domain.StatusRejected)
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.ProjectHours, len(rows))
	for _, row := range rows {
		out[row.ProjectID] = domain.ProjectHours{TotalHours: row.TotalHours, EmployeeCount: row.EmployeeCount}
	}
	return out, nil
}

// ListProjectEntries lists every entry logged against the project with the
// employee name, newest date first.
func (r *ProjectRepository) ListProjectEntries(ctx context.Context, projectID string) ([]*TimeEntry, error) {
	var entries []*TimeEntry
	err := r.inTenant(ctx, func(ctx context.Context) error {
		query := `SELECT ` + entryColumns + `, u.name AS user_name
			FROM time_entries e
			LEFT JOIN user_settings u ON u.user_id = e.user_id
			WHERE e.project_id = $1
			ORDER BY e.entry_date DESC, e.start_minute DESC`
		return r.db.SelectContext(ctx, &entries, query, projectID)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ============================================================================
// WORKPLACES
// ============================================================================

// CreateWorkplace inserts the workplace, assigning its ID and, when empty,
// the next generated code.
func (r *ProjectRepository) CreateWorkplace(ctx context.Context, w *Workplace) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}

	return r.inTenant(ctx, func(ctx context.Context) error {
		if w.Code == "" {
			code, err := r.nextCode(ctx, domain.CodePrefixWorkplace)
			if err != nil {
				return err
			}
			w.Code = code
		}

		query := `
			INSERT INTO workplaces (id, company_id, name, code)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at, updated_at
		`
		err := r.db.QueryRowxContext(ctx, query, w.ID, w.CompanyID, w.Name, w.Code).
			Scan(&w.CreatedAt, &w.UpdatedAt)
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	})
}

// GetWorkplace gets a workplace by ID. IDs that are not UUIDs are not found.
func (r *ProjectRepository) GetWorkplace(ctx context.Context, id string) (*Workplace, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NotFound("workplace")
	}

	var w Workplace
	err := r.inTenant(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &w,
			`SELECT id, company_id, name, code, created_at, updated_at FROM workplaces WHERE id = $1`, id)
	})
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("workplace")
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWorkplaces lists the company's workplaces by name
func (r *ProjectRepository) ListWorkplaces(ctx context.Context, companyID string) ([]*Workplace, error) {
	var workplaces []*Workplace
	err := r.inTenant(ctx, func(ctx context.Context) error {
		query := `
			SELECT id, company_id, name, code, created_at, updated_at
			FROM workplaces
			WHERE company_id = $1
			ORDER BY name`
		return r.db.SelectContext(ctx, &workplaces, query, companyID)
	})
	if err != nil {
		return nil, err
	}
	return workplaces, nil
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := domain.FormatDate(*t)
	return &s
}
