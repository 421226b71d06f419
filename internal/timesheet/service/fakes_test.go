package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/domain"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/events"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/repository"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/service"
	"github.com/tyotrack/tyotrack-backend/pkg/actor"
	"github.com/tyotrack/tyotrack-backend/pkg/config"
	"github.com/tyotrack/tyotrack-backend/pkg/errors"
	"github.com/tyotrack/tyotrack-backend/pkg/testutil"
)

// ============================================================================
// FAKE STORES
// ============================================================================

// fakeEntries keeps entries in memory. InTenantTx restores the previous
// rows when fn fails, like a rolled back transaction.
type fakeEntries struct {
	mu     sync.Mutex
	rows   map[string]*repository.TimeEntry
	locked [][]time.Time

	failCreateAt int
	creates      int
	updateErr    error
}

func newFakeEntries() *fakeEntries {
	return &fakeEntries{rows: map[string]*repository.TimeEntry{}}
}

func (f *fakeEntries) InTenantTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	snapshot := make(map[string]*repository.TimeEntry, len(f.rows))
	for k, v := range f.rows {
		c := *v
		snapshot[k] = &c
	}
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.rows = snapshot
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeEntries) LockUserDates(ctx context.Context, userID string, dates []time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = append(f.locked, dates)
	return nil
}

func (f *fakeEntries) FindEntries(ctx context.Context, userID string, dates []time.Time, statuses []domain.Status) ([]*repository.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*repository.TimeEntry
	for _, e := range f.sorted() {
		if e.UserID != userID || !hasStatus(statuses, e.Status) {
			continue
		}
		for _, d := range dates {
			if domain.FormatDate(d) == domain.FormatDate(e.EntryDate) {
				c := *e
				out = append(out, &c)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeEntries) CreateEntry(ctx context.Context, entry *repository.TimeEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.creates++
	if f.failCreateAt == f.creates {
		return fmt.Errorf("insert %d failed", f.creates)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	c := *entry
	f.rows[entry.ID] = &c
	return nil
}

func (f *fakeEntries) GetEntryByID(ctx context.Context, id string) (*repository.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.rows[id]
	if !ok {
		return nil, errors.NotFound("time_entry")
	}
	c := *e
	return &c, nil
}

func (f *fakeEntries) ListEntriesForUser(ctx context.Context, userID string, from, to time.Time) ([]*repository.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r := domain.DateRange{From: from, To: to}
	var out []*repository.TimeEntry
	for _, e := range f.sorted() {
		if e.UserID == userID && r.Contains(e.EntryDate) {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeEntries) ListPending(ctx context.Context, companyID string) ([]*repository.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*repository.TimeEntry
	for _, e := range f.sorted() {
		if e.CompanyID == companyID && e.Status == domain.StatusPending {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeEntries) UpdateStatus(ctx context.Context, id string, from, to domain.Status, reviewerID string, at time.Time) (*repository.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return nil, f.updateErr
	}
	e, ok := f.rows[id]
	if !ok {
		return nil, errors.NotFound("time_entry")
	}
	if e.Status != from {
		return nil, fmt.Errorf("%w: entry %s is %s", repository.ErrStatusConflict, id, e.Status)
	}
	e.Status = to
	e.ReviewedBy = &reviewerID
	e.ReviewedAt = &at
	c := *e
	return &c, nil
}

// all returns every stored entry, oldest date first
func (f *fakeEntries) all() []*repository.TimeEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted()
}

func (f *fakeEntries) sorted() []*repository.TimeEntry {
	out := make([]*repository.TimeEntry, 0, len(f.rows))
	for _, e := range f.rows {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryDate.Equal(out[j].EntryDate) {
			return out[i].EntryDate.Before(out[j].EntryDate)
		}
		return out[i].StartMinute < out[j].StartMinute
	})
	return out
}

func (f *fakeEntries) seed(t *testing.T, userID, date string, start, end string, status domain.Status) *repository.TimeEntry {
	t.Helper()
	s, err := domain.ParseClock(start)
	if err != nil {
		t.Fatal(err)
	}
	e, err := domain.ParseClock(end)
	if err != nil {
		t.Fatal(err)
	}

	entry := &repository.TimeEntry{
		UserID: userID, CompanyID: testutil.TestTenantID, ProjectID: "seed",
		EntryDate: testutil.Date(t, date), StartTime: start, EndTime: end,
		StartMinute: s, EndMinute: e, TotalHours: float64(e-s) / 60, DayHours: float64(e-s) / 60,
		Status: status,
	}
	if err := f.CreateEntry(context.Background(), entry); err != nil {
		t.Fatal(err)
	}
	return entry
}

func hasStatus(list []domain.Status, s domain.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type fakeSettings struct {
	mu      sync.Mutex
	company map[string]*repository.CompanySettings
	users   map[string]*repository.UserSettings
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{
		company: map[string]*repository.CompanySettings{},
		users:   map[string]*repository.UserSettings{},
	}
}

func (f *fakeSettings) GetCompanySettings(ctx context.Context, companyID string) (*repository.CompanySettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.company[companyID]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (f *fakeSettings) UpsertCompanySettings(ctx context.Context, s *repository.CompanySettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *s
	f.company[s.CompanyID] = &c
	return nil
}

func (f *fakeSettings) GetUserSettings(ctx context.Context, userID string) (*repository.UserSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (f *fakeSettings) SetAutoApprove(ctx context.Context, userID string, autoApprove bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return false, nil
	}
	u.IsAutoApprove = autoApprove
	return true, nil
}

// fakeProjects keeps projects and workplaces in memory and reads hours from
// the entries fake.
type fakeProjects struct {
	mu         sync.Mutex
	projects   map[string]*repository.Project
	workplaces map[string]*repository.Workplace
	seq        map[string]int
	entries    *fakeEntries
}

func newFakeProjects(entries *fakeEntries) *fakeProjects {
	return &fakeProjects{
		projects:   map[string]*repository.Project{},
		workplaces: map[string]*repository.Workplace{},
		seq:        map[string]int{},
		entries:    entries,
	}
}

func (f *fakeProjects) CreateProject(ctx context.Context, p *repository.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Code == "" {
		f.seq[domain.CodePrefixProject]++
		p.Code = domain.FormatCode(domain.CodePrefixProject, f.seq[domain.CodePrefixProject])
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	c := *p
	f.projects[p.ID] = &c
	return nil
}

func (f *fakeProjects) GetProject(ctx context.Context, id string) (*repository.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return nil, errors.NotFound("project")
	}
	c := *p
	return &c, nil
}

func (f *fakeProjects) ListProjects(ctx context.Context, companyID string) ([]*repository.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*repository.Project
	for _, p := range f.projects {
		if p.CompanyID == companyID {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code > out[j].Code })
	return out, nil
}

func (f *fakeProjects) UpdateProject(ctx context.Context, p *repository.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.projects[p.ID]
	if !ok || cur.CompanyID != p.CompanyID {
		return errors.NotFound("project")
	}
	p.UpdatedAt = time.Now()
	c := *p
	f.projects[p.ID] = &c
	return nil
}

func (f *fakeProjects) ProjectTotals(ctx context.Context, companyID string) (map[string]domain.ProjectHours, error) {
	var records []domain.Record
	for _, e := range f.entries.all() {
		if e.CompanyID == companyID {
			records = append(records, e.Record())
		}
	}
	return domain.SummarizeProjects(records), nil
}

func (f *fakeProjects) ListProjectEntries(ctx context.Context, projectID string) ([]*repository.TimeEntry, error) {
	var out []*repository.TimeEntry
	for _, e := range f.entries.all() {
		if e.ProjectID == projectID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeProjects) CreateWorkplace(ctx context.Context, w *repository.Workplace) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Code == "" {
		f.seq[domain.CodePrefixWorkplace]++
		w.Code = domain.FormatCode(domain.CodePrefixWorkplace, f.seq[domain.CodePrefixWorkplace])
	}
	c := *w
	f.workplaces[w.ID] = &c
	return nil
}

func (f *fakeProjects) GetWorkplace(ctx context.Context, id string) (*repository.Workplace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workplaces[id]
	if !ok {
		return nil, errors.NotFound("workplace")
	}
	c := *w
	return &c, nil
}

func (f *fakeProjects) ListWorkplaces(ctx context.Context, companyID string) ([]*repository.Workplace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*repository.Workplace
	for _, w := range f.workplaces {
		if w.CompanyID == companyID {
			c := *w
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// seed stores a project of the test company under a fixed ID
func (f *fakeProjects) seed(id string, status domain.ProjectStatus) *repository.Project {
	p := &repository.Project{
		ID: id, CompanyID: testutil.TestTenantID, Name: id, Status: status,
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := f.CreateProject(context.Background(), p); err != nil {
		panic(err)
	}
	return p
}

// ============================================================================
// HARNESS
// ============================================================================

// fixedNow is 2025-06-10 12:00 UTC, a Tuesday.
var fixedNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

type harness struct {
	entries   *fakeEntries
	settings  *fakeSettings
	projects  *fakeProjects
	published *testutil.MockPublisher
	fixtures  *testutil.FixtureFactory

	settingsSvc *service.SettingsService
	projectSvc  *service.ProjectService
	entrySvc    *service.TimeEntryService
	approvalSvc *service.ApprovalService
	statsSvc    *service.StatsService
}

func newHarness() *harness {
	h := &harness{
		entries:   newFakeEntries(),
		settings:  newFakeSettings(),
		published: testutil.NewMockPublisher(),
		fixtures:  testutil.NewFixtureFactory(),
	}
	h.projects = newFakeProjects(h.entries)
	h.projects.seed("project-1", domain.ProjectActive)

	clock := func() time.Time { return fixedNow }
	pub := events.New(h.published, nil)
	defaults := config.TimesheetConfig{
		DayStart: "06:00", EveningStart: "18:00", NightStart: "22:00",
		BackdateLimitDays: testutil.PtrInt(30), RejectOverlaps: true, Timezone: "UTC",
	}

	h.settingsSvc = service.NewSettingsService(h.settings, defaults, pub, nil)
	h.projectSvc = service.NewProjectService(h.projects, h.settingsSvc, nil).WithClock(clock)
	h.entrySvc = service.NewTimeEntryService(h.entries, h.settingsSvc, h.projectSvc, pub, nil).WithClock(clock)
	h.approvalSvc = service.NewApprovalService(h.entries, pub, nil).WithClock(clock)
	h.statsSvc = service.NewStatsService(h.entries, h.settingsSvc).WithClock(clock)
	return h
}

func (h *harness) as(a *actor.Actor) context.Context {
	return actor.WithActor(testutil.TestTenantContext(), a)
}

func (h *harness) autoApprove(userID string) {
	h.settings.users[userID] = &repository.UserSettings{UserID: userID, IsAutoApprove: true}
}

func (h *harness) companySettings(mutate func(*repository.CompanySettings)) {
	s := h.settingsSvc.Defaults(testutil.TestTenantID)
	mutate(s)
	h.settings.company[testutil.TestTenantID] = s
}

func shift(date, start, end string) *service.LogTimeRequest {
	return &service.LogTimeRequest{Date: date, StartTime: start, EndTime: end, ProjectID: "project-1"}
}
