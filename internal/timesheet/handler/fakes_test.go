package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/domain"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/events"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/handler"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/repository"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/service"
	"github.com/tyotrack/tyotrack-backend/pkg/auth"
	"github.com/tyotrack/tyotrack-backend/pkg/config"
	"github.com/tyotrack/tyotrack-backend/pkg/errors"
	"github.com/tyotrack/tyotrack-backend/pkg/httputil"
	"github.com/tyotrack/tyotrack-backend/pkg/logger"
	"github.com/tyotrack/tyotrack-backend/pkg/testutil"
)

// ============================================================================
// IN-MEMORY STORE
// ============================================================================

// memStore backs the entry, settings and project interfaces. It does not
// roll back; the service tests cover transactional behaviour.
type memStore struct {
	mu         sync.Mutex
	entries    map[string]*repository.TimeEntry
	company    map[string]*repository.CompanySettings
	users      map[string]*repository.UserSettings
	projects   map[string]*repository.Project
	workplaces map[string]*repository.Workplace
}

func newMemStore() *memStore {
	return &memStore{
		entries:    map[string]*repository.TimeEntry{},
		company:    map[string]*repository.CompanySettings{},
		users:      map[string]*repository.UserSettings{},
		projects:   map[string]*repository.Project{},
		workplaces: map[string]*repository.Workplace{},
	}
}

func (m *memStore) InTenantTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *memStore) LockUserDates(ctx context.Context, userID string, dates []time.Time) error {
	return nil
}

func (m *memStore) FindEntries(ctx context.Context, userID string, dates []time.Time, statuses []domain.Status) ([]*repository.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*repository.TimeEntry
	for _, e := range m.sorted() {
		if e.UserID != userID || !containsStatus(statuses, e.Status) {
			continue
		}
		for _, d := range dates {
			if domain.FormatDate(d) == domain.FormatDate(e.EntryDate) {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func (m *memStore) CreateEntry(ctx context.Context, entry *repository.TimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = uuid.NewString()
	c := *entry
	m.entries[entry.ID] = &c
	return nil
}

func (m *memStore) GetEntryByID(ctx context.Context, id string) (*repository.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, errors.NotFound("time_entry")
	}
	c := *e
	return &c, nil
}

func (m *memStore) ListEntriesForUser(ctx context.Context, userID string, from, to time.Time) ([]*repository.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := domain.DateRange{From: from, To: to}
	var out []*repository.TimeEntry
	for _, e := range m.sorted() {
		if e.UserID == userID && r.Contains(e.EntryDate) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) ListPending(ctx context.Context, companyID string) ([]*repository.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*repository.TimeEntry
	for _, e := range m.sorted() {
		if e.CompanyID == companyID && e.Status == domain.StatusPending {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, id string, from, to domain.Status, reviewerID string, at time.Time) (*repository.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, errors.NotFound("time_entry")
	}
	if e.Status != from {
		return nil, fmt.Errorf("%w: entry %s is %s", repository.ErrStatusConflict, id, e.Status)
	}
	e.Status, e.ReviewedBy, e.ReviewedAt = to, &reviewerID, &at
	c := *e
	return &c, nil
}

func (m *memStore) GetCompanySettings(ctx context.Context, companyID string) (*repository.CompanySettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.company[companyID]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (m *memStore) UpsertCompanySettings(ctx context.Context, s *repository.CompanySettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *s
	m.company[s.CompanyID] = &c
	return nil
}

func (m *memStore) GetUserSettings(ctx context.Context, userID string) (*repository.UserSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (m *memStore) SetAutoApprove(ctx context.Context, userID string, autoApprove bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false, nil
	}
	u.IsAutoApprove = autoApprove
	return true, nil
}

func (m *memStore) CreateProject(ctx context.Context, p *repository.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Code == "" {
		p.Code = domain.FormatCode(domain.CodePrefixProject, len(m.projects)+1)
	}
	c := *p
	m.projects[p.ID] = &c
	return nil
}

func (m *memStore) GetProject(ctx context.Context, id string) (*repository.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, errors.NotFound("project")
	}
	c := *p
	return &c, nil
}

func (m *memStore) ListProjects(ctx context.Context, companyID string) ([]*repository.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*repository.Project
	for _, p := range m.projects {
		if p.CompanyID == companyID {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code > out[j].Code })
	return out, nil
}

func (m *memStore) UpdateProject(ctx context.Context, p *repository.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; !ok {
		return errors.NotFound("project")
	}
	c := *p
	m.projects[p.ID] = &c
	return nil
}

func (m *memStore) ProjectTotals(ctx context.Context, companyID string) (map[string]domain.ProjectHours, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var records []domain.Record
	for _, e := range m.sorted() {
		if e.CompanyID == companyID {
			records = append(records, e.Record())
		}
	}
	return domain.SummarizeProjects(records), nil
}

func (m *memStore) ListProjectEntries(ctx context.Context, projectID string) ([]*repository.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*repository.TimeEntry
	for _, e := range m.sorted() {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) CreateWorkplace(ctx context.Context, w *repository.Workplace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w.ID = uuid.NewString()
	w.Code = domain.FormatCode(domain.CodePrefixWorkplace, len(m.workplaces)+1)
	c := *w
	m.workplaces[w.ID] = &c
	return nil
}

func (m *memStore) GetWorkplace(ctx context.Context, id string) (*repository.Workplace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workplaces[id]
	if !ok {
		return nil, errors.NotFound("workplace")
	}
	c := *w
	return &c, nil
}

func (m *memStore) ListWorkplaces(ctx context.Context, companyID string) ([]*repository.Workplace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*repository.Workplace
	for _, w := range m.workplaces {
		if w.CompanyID == companyID {
			c := *w
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func containsStatus(list []domain.Status, s domain.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (m *memStore) sorted() []*repository.TimeEntry {
	out := make([]*repository.TimeEntry, 0, len(m.entries))
	for _, e := range m.entries {
		c := *e
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryDate.Equal(out[j].EntryDate) {
			return out[i].EntryDate.Before(out[j].EntryDate)
		}
		return out[i].StartMinute < out[j].StartMinute
	})
	return out
}

// ============================================================================
// SERVER
// ============================================================================

// fixedNow is Tuesday 2025-06-10 12:00 UTC.
var fixedNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

type server struct {
	store     *memStore
	published *testutil.MockPublisher
	fixtures  *testutil.FixtureFactory
	router    http.Handler
}

func newServer() *server {
	s := &server{
		store:     newMemStore(),
		published: testutil.NewMockPublisher(),
		fixtures:  testutil.NewFixtureFactory(),
	}

	log := logger.Nop()
	clock := func() time.Time { return fixedNow }
	pub := events.New(s.published, log)
	defaults := config.TimesheetConfig{
		DayStart: "06:00", EveningStart: "18:00", NightStart: "22:00",
		BackdateLimitDays: testutil.PtrInt(30), RejectOverlaps: true, Timezone: "UTC",
	}

	_ = s.store.CreateProject(context.Background(), &repository.Project{
		ID: "project-1", CompanyID: testutil.TestTenantID, Name: "Default", Status: domain.ProjectActive,
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	settingsSvc := service.NewSettingsService(s.store, defaults, pub, log)
	projectSvc := service.NewProjectService(s.store, settingsSvc, log).WithClock(clock)
	h := &handler.Handlers{
		Entries:   handler.NewTimeEntryHandler(service.NewTimeEntryService(s.store, settingsSvc, projectSvc, pub, log).WithClock(clock), log),
		Approvals: handler.NewApprovalHandler(service.NewApprovalService(s.store, pub, log).WithClock(clock), log),
		Settings:  handler.NewSettingsHandler(settingsSvc, log),
		Stats:     handler.NewStatsHandler(service.NewStatsService(s.store, settingsSvc).WithClock(clock)),
		Projects:  handler.NewProjectHandler(projectSvc, log),
	}

	health := func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
	verifier := auth.NewVerifier(&config.JWTConfig{Secret: testutil.TestJWTSecret})
	s.router = h.NewRouter(verifier, log, health)
	return s
}
