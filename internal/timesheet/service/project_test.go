package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/domain"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/repository"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/service"
	"github.com/tyotrack/tyotrack-backend/pkg/errors"
	"github.com/tyotrack/tyotrack-backend/pkg/testutil"
)

// ============================================================================
// PROJECTS
// ============================================================================

func TestProjects_CreateGeneratesCodeAndStartsToday(t *testing.T) {
	h := newHarness()
	admin := h.fixtures.Admin()

	p, err := h.projectSvc.Create(h.as(admin), &service.CreateProjectRequest{
		Name:           "  Harbour crane ",
		EstimatedHours: func() *float64 { v := 400.0; return &v }(),
	})
	require.NoError(t, err)

	assert.Equal(t, "Harbour crane", p.Name)
	assert.Equal(t, "PRO002", p.Code) // project-1 took PRO001
	assert.Equal(t, domain.ProjectActive, p.Status)
	assert.Equal(t, "2025-06-10", domain.FormatDate(p.StartDate))
	assert.Equal(t, testutil.TestTenantID, p.CompanyID)
	require.NotNil(t, p.CreatedBy)
	assert.Equal(t, admin.ID, *p.CreatedBy)
}

func TestProjects_CreateStartsTodayInCompanyZone(t *testing.T) {
	h := newHarness()
	h.companySettings(func(s *repository.CompanySettings) { s.Timezone = "Pacific/Kiritimati" })

	p, err := h.projectSvc.Create(h.as(h.fixtures.Admin()), &service.CreateProjectRequest{Name: "Early"})
	require.NoError(t, err)
	// 12:00 UTC is already 02:00 the next day at UTC+14
	assert.Equal(t, "2025-06-11", domain.FormatDate(p.StartDate))
}

func TestProjects_CreateRejectsEndBeforeStart(t *testing.T) {
	h := newHarness()

	_, err := h.projectSvc.Create(h.as(h.fixtures.Admin()), &service.CreateProjectRequest{
		Name:      "Backwards",
		StartDate: testutil.PtrString("2025-06-10"),
		EndDate:   testutil.PtrString("2025-06-01"),
	})
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Details, "end_date")
}

func TestProjects_Update(t *testing.T) {
	h := newHarness()
	admin := h.fixtures.Admin()

	p, err := h.projectSvc.Update(h.as(admin), "project-1", &service.UpdateProjectRequest{
		Name:    "Renamed",
		Code:    "CRANE-1",
		Status:  "COMPLETED",
		EndDate: testutil.PtrString("2025-06-30"),
	})
	require.NoError(t, err)
	assert.Equal(t, "CRANE-1", p.Code)
	assert.Equal(t, domain.ProjectCompleted, p.Status)
	assert.Equal(t, "2025-01-01", domain.FormatDate(p.StartDate))
	require.NotNil(t, p.EndDate)
	assert.Equal(t, "2025-06-30", domain.FormatDate(*p.EndDate))

	stored, err := h.projects.GetProject(context.Background(), "project-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Name)

	// a completed project takes no more time
	_, err = h.entrySvc.LogTime(h.as(h.fixtures.Employee()), shift("2025-06-09", "09:00", "17:00"))
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestProjects_UpdateUnknown(t *testing.T) {
	h := newHarness()

	_, err := h.projectSvc.Update(h.as(h.fixtures.Admin()), "missing", &service.UpdateProjectRequest{
		Name: "x", Code: "x", Status: "ACTIVE",
	})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestProjects_OtherCompanyIsHidden(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.projects.CreateProject(context.Background(), &repository.Project{
		ID: "foreign", CompanyID: "another-company", Name: "Foreign", Status: domain.ProjectActive,
	}))

	_, err := h.projectSvc.Get(h.as(h.fixtures.Admin()), "foreign")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	list, err := h.projectSvc.ListWithStats(h.as(h.fixtures.Admin()))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "project-1", list[0].ID)
}

// ============================================================================
// PROJECT HOURS
// ============================================================================

func TestProjects_ListWithStats(t *testing.T) {
	h := newHarness()
	h.projects.seed("project-2", domain.ProjectActive)
	a := h.fixtures.Employee()
	b := h.fixtures.Employee()

	_, err := h.entrySvc.LogTime(h.as(a), shift("2025-06-09", "09:00", "17:00"))
	require.NoError(t, err)
	_, err = h.entrySvc.LogTime(h.as(b), shift("2025-06-09", "09:00", "13:00"))
	require.NoError(t, err)
	rejected, err := h.entrySvc.LogTime(h.as(b), shift("2025-06-08", "09:00", "19:00"))
	require.NoError(t, err)
	_, err = h.approvalSvc.Reject(h.as(h.fixtures.Admin()), rejected.Entries[0].ID)
	require.NoError(t, err)

	list, err := h.projectSvc.ListWithStats(h.as(a))
	require.NoError(t, err)
	require.Len(t, list, 2)

	byID := map[string]domain.ProjectHours{}
	for _, p := range list {
		byID[p.ID] = p.ProjectHours
	}
	assert.Equal(t, domain.ProjectHours{TotalHours: 12, EmployeeCount: 2}, byID["project-1"])
	assert.Equal(t, domain.ProjectHours{}, byID["project-2"])
}

func TestProjects_GetTeam(t *testing.T) {
	h := newHarness()
	a := h.fixtures.Employee()
	b := h.fixtures.Employee()

	_, err := h.entrySvc.LogTime(h.as(a), shift("2025-06-09", "09:00", "12:00"))
	require.NoError(t, err)
	_, err = h.entrySvc.LogTime(h.as(b), shift("2025-06-05", "09:00", "17:00"))
	require.NoError(t, err)
	_, err = h.entrySvc.LogTime(h.as(b), shift("2025-06-06", "09:00", "11:00"))
	require.NoError(t, err)

	t.Run("admins see everyone", func(t *testing.T) {
		d, err := h.projectSvc.Get(h.as(h.fixtures.Admin()), "project-1")
		require.NoError(t, err)
		assert.Equal(t, domain.ProjectHours{TotalHours: 13, EmployeeCount: 2}, d.ProjectHours)
		require.Len(t, d.Team, 2)
		assert.Equal(t, b.ID, d.Team[0].UserID)
		assert.Equal(t, 10.0, d.Team[0].TotalHours)
		assert.Equal(t, 2, d.Team[0].EntryCount)
		assert.Equal(t, "2025-06-06", d.Team[0].LastActivity)
		assert.Equal(t, a.ID, d.Team[1].UserID)
	})

	t.Run("employees see themselves", func(t *testing.T) {
		d, err := h.projectSvc.Get(h.as(a), "project-1")
		require.NoError(t, err)
		assert.Equal(t, 13.0, d.TotalHours)
		require.Len(t, d.Team, 1)
		assert.Equal(t, a.ID, d.Team[0].UserID)
	})
}

// ============================================================================
// WORKPLACES
// ============================================================================

func TestWorkplaces_CreateAndList(t *testing.T) {
	h := newHarness()
	ctx := h.as(h.fixtures.Admin())

	w1, err := h.projectSvc.CreateWorkplace(ctx, &service.CreateWorkplaceRequest{Name: "Vuosaari"})
	require.NoError(t, err)
	w2, err := h.projectSvc.CreateWorkplace(ctx, &service.CreateWorkplaceRequest{Name: "Depot"})
	require.NoError(t, err)
	assert.Equal(t, "LOC001", w1.Code)
	assert.Equal(t, "LOC002", w2.Code)

	ws, err := h.projectSvc.ListWorkplaces(ctx)
	require.NoError(t, err)
	require.Len(t, ws, 2)
	assert.Equal(t, "Depot", ws[0].Name)
}

func TestWorkplaces_EmptyListIsNotNil(t *testing.T) {
	h := newHarness()
	ws, err := h.projectSvc.ListWorkplaces(h.as(h.fixtures.Employee()))
	require.NoError(t, err)
	assert.NotNil(t, ws)
	assert.Empty(t, ws)
}

func TestProjects_RequireActor(t *testing.T) {
	h := newHarness()
	_, err := h.projectSvc.ListWithStats(context.Background())
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}
