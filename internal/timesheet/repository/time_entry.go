package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/domain"
	"github.com/tyotrack/tyotrack-backend/pkg/database"
	"github.com/tyotrack/tyotrack-backend/pkg/errors"
	"github.com/tyotrack/tyotrack-backend/pkg/tenant"
)

// ErrStatusConflict is returned by UpdateStatus when the entry is no longer
// in the expected status.
var ErrStatusConflict = stderrors.New("time entry status changed concurrently")

// TimeEntry is a stored time entry. A split shift is two rows, the second
// pointing at the first through ParentEntryID.
type TimeEntry struct {
	ID            string        `db:"id" json:"id"`
	UserID        string        `db:"user_id" json:"user_id"`
	CompanyID     string        `db:"company_id" json:"company_id"`
	ProjectID     string        `db:"project_id" json:"project_id"`
	WorkplaceID   *string       `db:"workplace_id" json:"workplace_id,omitempty"`
	EntryDate     time.Time     `db:"entry_date" json:"date"`
	StartTime     string        `db:"start_time" json:"start_time"`
	EndTime       string        `db:"end_time" json:"end_time"`
	StartMinute   int           `db:"start_minute" json:"-"`
	EndMinute     int           `db:"end_minute" json:"-"`
	TotalHours    float64       `db:"total_hours" json:"total_hours"`
	DayHours      float64       `db:"day_hours" json:"day_hours"`
	EveningHours  float64       `db:"evening_hours" json:"evening_hours"`
	NightHours    float64       `db:"night_hours" json:"night_hours"`
	IsSplit       bool          `db:"is_split" json:"is_split"`
	ParentEntryID *string       `db:"parent_entry_id" json:"parent_entry_id,omitempty"`
	HasOverlap    bool          `db:"has_overlap" json:"has_overlap"`
	Status        domain.Status `db:"status" json:"status"`
	Description   *string       `db:"description" json:"description,omitempty"`
	ReviewedBy    *string       `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time    `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`

	// Joined fields (populated by approval queries)
	UserName *string `db:"user_name" json:"user_name,omitempty"`
}

// FromRecord converts an assembled record into a row.
func FromRecord(rec *domain.Record) *TimeEntry {
	return &TimeEntry{
		ID:            rec.ID,
		UserID:        rec.UserID,
		CompanyID:     rec.CompanyID,
		ProjectID:     rec.ProjectID,
		WorkplaceID:   rec.WorkplaceID,
		EntryDate:     rec.Date,
		StartTime:     rec.StartTime,
		EndTime:       rec.EndTime,
		StartMinute:   rec.StartMinutes,
		EndMinute:     rec.EndMinutes,
		TotalHours:    rec.Hours.Total,
		DayHours:      rec.Hours.Day,
		EveningHours:  rec.Hours.Evening,
		NightHours:    rec.Hours.Night,
		IsSplit:       rec.IsSplit,
		ParentEntryID: rec.ParentEntryID,
		HasOverlap:    rec.HasOverlap,
		Status:        rec.Status,
		Description:   rec.Description,
	}
}

// Existing returns the part of the entry the overlap check reads.
func (e *TimeEntry) Existing() domain.ExistingEntry {
	return domain.ExistingEntry{
		ID:           e.ID,
		Date:         e.EntryDate,
		StartMinutes: e.StartMinute,
		EndMinutes:   e.EndMinute,
		Status:       e.Status,
	}
}

// Record converts the row back to a domain record.
func (e *TimeEntry) Record() domain.Record {
	return domain.Record{
		ID:            e.ID,
		UserID:        e.UserID,
		CompanyID:     e.CompanyID,
		ProjectID:     e.ProjectID,
		WorkplaceID:   e.WorkplaceID,
		Description:   e.Description,
		Date:          e.EntryDate,
		StartTime:     e.StartTime,
		EndTime:       e.EndTime,
		StartMinutes:  e.StartMinute,
		EndMinutes:    e.EndMinute,
		Hours:         domain.ClassifiedHours{Day: e.DayHours, Evening: e.EveningHours, Night: e.NightHours, Total: e.TotalHours},
		IsSplit:       e.IsSplit,
		ParentEntryID: e.ParentEntryID,
		HasOverlap:    e.HasOverlap,
		Status:        e.Status,
	}
}

const entryColumns = `
	e.id, e.user_id, e.company_id, e.project_id, e.workplace_id, e.entry_date,
	e.start_time, e.end_time, e.start_minute, e.end_minute,
	e.total_hours, e.day_hours, e.evening_hours, e.night_hours,
	e.is_split, e.parent_entry_id, e.has_overlap, e.status, e.description,
	e.reviewed_by, e.reviewed_at, e.created_at, e.updated_at`

// TimeEntryRepository handles time entry persistence
type TimeEntryRepository struct {
	db *database.DB
}

// NewTimeEntryRepository creates a new time entry repository
func NewTimeEntryRepository(db *database.DB) *TimeEntryRepository {
	return &TimeEntryRepository{db: db}
}

// InTenantTx runs fn in one transaction scoped to the tenant on ctx. Every
// repository call made with the ctx passed to fn joins that transaction.
func (r *TimeEntryRepository) InTenantTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}
	return r.db.WithTenantSchema(ctx, tenantSchema, fn)
}

// ============================================================================
// SUBMISSION
// ============================================================================

// LockUserDates takes a transaction-scoped advisory lock per (user, date).
// Dates are locked in ascending order so two submissions touching the same
// days cannot deadlock. Must run inside InTenantTx to hold past the call.
func (r *TimeEntryRepository) LockUserDates(ctx context.Context, userID string, dates []time.Time) error {
	keys := make([]string, 0, len(dates))
	seen := make(map[string]bool, len(dates))
	for _, d := range dates {
		k := userID + ":" + domain.FormatDate(d)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	return r.InTenantTx(ctx, func(ctx context.Context) error {
		for _, k := range keys {
			if _, err := r.db.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", k); err != nil {
				return fmt.Errorf("failed to lock %s: %w", k, err)
			}
		}
		return nil
	})
}

// FindEntries returns the user's entries on any of dates whose status is one
// of statuses.
func (r *TimeEntryRepository) FindEntries(ctx context.Context, userID string, dates []time.Time, statuses []domain.Status) ([]*TimeEntry, error) {
	dateArgs := make([]string, len(dates))
	for i, d := range dates {
		dateArgs[i] = domain.FormatDate(d)
	}
	statusArgs := make([]string, len(statuses))
	for i, s := range statuses {
		statusArgs[i] = string(s)
	}

	var entries []*TimeEntry
	err := r.InTenantTx(ctx, func(ctx context.Context) error {
		query := `SELECT ` + entryColumns + `
			FROM time_entries e
			WHERE e.user_id = $1
				AND e.entry_date = ANY($2::date[])
				AND e.status = ANY($3)
			ORDER BY e.entry_date, e.start_minute`
		return r.db.SelectContext(ctx, &entries, query, userID, pq.Array(dateArgs), pq.Array(statusArgs))
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// CreateEntry inserts the entry and assigns its ID
func (r *TimeEntryRepository) CreateEntry(ctx context.Context, entry *TimeEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	return r.InTenantTx(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO time_entries (
				id, user_id, company_id, project_id, workplace_id, entry_date,
				start_time, end_time, start_minute, end_minute,
				total_hours, day_hours, evening_hours, night_hours,
				is_split, parent_entry_id, has_overlap, status, description
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
			RETURNING created_at, updated_at
		`
		err := r.db.QueryRowxContext(ctx, query,
			entry.ID, entry.UserID, entry.CompanyID, entry.ProjectID, entry.WorkplaceID, domain.FormatDate(entry.EntryDate),
			entry.StartTime, entry.EndTime, entry.StartMinute, entry.EndMinute,
			entry.TotalHours, entry.DayHours, entry.EveningHours, entry.NightHours,
			entry.IsSplit, entry.ParentEntryID, entry.HasOverlap, entry.Status, entry.Description,
		).Scan(&entry.CreatedAt, &entry.UpdatedAt)
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	})
}

// ============================================================================
// QUERIES
// ============================================================================

// GetEntryByID gets a time entry by ID
func (r *TimeEntryRepository) GetEntryByID(ctx context.Context, id string) (*TimeEntry, error) {
	var entry TimeEntry
	err := r.InTenantTx(ctx, func(ctx context.Context) error {
		query := `SELECT ` + entryColumns + ` FROM time_entries e WHERE e.id = $1`
		return r.db.GetContext(ctx, &entry, query, id)
	})
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("time_entry")
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListEntriesForUser lists the user's entries between from and to inclusive,
// newest first.
func (r *TimeEntryRepository) ListEntriesForUser(ctx context.Context, userID string, from, to time.Time) ([]*TimeEntry, error) {
	var entries []*TimeEntry
	err := r.InTenantTx(ctx, func(ctx context.Context) error {
		query := `SELECT ` + entryColumns + `
			FROM time_entries e
			WHERE e.user_id = $1 AND e.entry_date BETWEEN $2 AND $3
			ORDER BY e.entry_date DESC, e.start_minute DESC`
		return r.db.SelectContext(ctx, &entries, query, userID, domain.FormatDate(from), domain.FormatDate(to))
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListPending lists the company's pending entries with the employee name,
// newest date first.
func (r *TimeEntryRepository) ListPending(ctx context.Context, companyID string) ([]*TimeEntry, error) {
	var entries []*TimeEntry
	err := r.InTenantTx(ctx, func(ctx context.Context) error {
		query := `SELECT ` + entryColumns + `, u.name AS user_name
			FROM time_entries e
			LEFT JOIN user_settings u ON u.user_id = e.user_id
			WHERE e.company_id = $1 AND e.status = $2
			ORDER BY e.entry_date DESC, e.created_at DESC`
		return r.db.SelectContext(ctx, &entries, query, companyID, domain.StatusPending)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ============================================================================
// REVIEW
// ============================================================================

// UpdateStatus moves the entry from one status to another and records the
// reviewer. The WHERE clause on the current status makes the transition
// atomic: a concurrent review makes this call fail with ErrStatusConflict.
func (r *TimeEntryRepository) UpdateStatus(ctx context.Context, id string, from, to domain.Status, reviewerID string, at time.Time) (*TimeEntry, error) {
	var entry TimeEntry
	err := r.InTenantTx(ctx, func(ctx context.Context) error {
		query := `
			UPDATE time_entries e
			SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = NOW()
			WHERE e.id = $1 AND e.status = $5
			RETURNING ` + entryColumns
		err := r.db.GetContext(ctx, &entry, query, id, to, reviewerID, at, from)
		if err != sql.ErrNoRows {
			return err
		}

		var current domain.Status
		err = r.db.GetContext(ctx, &current, `SELECT status FROM time_entries WHERE id = $1`, id)
		if err == sql.ErrNoRows {
			return errors.NotFound("time_entry")
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: entry %s is %s", ErrStatusConflict, id, current)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
