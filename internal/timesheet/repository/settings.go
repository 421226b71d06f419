package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/domain"
	"github.com/tyotrack/tyotrack-backend/pkg/database"
	"github.com/tyotrack/tyotrack-backend/pkg/tenant"
)

// CompanySettings holds a company's shift boundaries and logging policy
type CompanySettings struct {
	CompanyID          string    `db:"company_id" json:"company_id"`
	DayStart           string    `db:"day_start" json:"day_start"`
	EveningStart       string    `db:"evening_start" json:"evening_start"`
	NightStart         string    `db:"night_start" json:"night_start"`
	BackdateLimitDays  int       `db:"backdate_limit_days" json:"backdate_limit_days"`
	RejectOverlaps     bool      `db:"reject_overlaps" json:"reject_overlaps"`
	AllowFutureEntries bool      `db:"allow_future_entries" json:"allow_future_entries"`
	Timezone           string    `db:"timezone" json:"timezone"`
	UpdatedBy          *string   `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultCompanySettings is what a company without a settings row gets.
func DefaultCompanySettings(companyID string) *CompanySettings {
	return &CompanySettings{
		CompanyID:         companyID,
		DayStart:          domain.DefaultDayStart,
		EveningStart:      domain.DefaultEveningStart,
		NightStart:        domain.DefaultNightStart,
		BackdateLimitDays: domain.DefaultBackdateLimitDays,
		RejectOverlaps:    true,
		Timezone:          "UTC",
	}
}

// Boundaries parses the stored clock values.
func (s *CompanySettings) Boundaries() (domain.ShiftBoundaries, error) {
	return domain.ParseBoundaries(s.DayStart, s.EveningStart, s.NightStart)
}

// Policy returns the validation rules of the company.
func (s *CompanySettings) Policy() domain.Policy {
	return domain.Policy{
		BackdateLimitDays:  s.BackdateLimitDays,
		RejectOverlaps:     s.RejectOverlaps,
		AllowFutureEntries: s.AllowFutureEntries,
	}
}

// Location loads the company time zone, falling back to UTC.
func (s *CompanySettings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// UserSettings is the timesheet view of a user, kept in sync from user events
type UserSettings struct {
	UserID        string     `db:"user_id" json:"user_id"`
	Name          *string    `db:"name" json:"name,omitempty"`
	Email         *string    `db:"email" json:"email,omitempty"`
	Role          string     `db:"role" json:"role"`
	IsAutoApprove bool       `db:"is_auto_approve" json:"is_auto_approve"`
	DeletedAt     *time.Time `db:"deleted_at" json:"-"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// SettingsRepository handles company and user settings persistence
type SettingsRepository struct {
	db *database.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) inTenant(ctx context.Context, fn func(ctx context.Context) error) error {
	tenantSchema, err := tenant.TenantSchema(ctx)
	if err != nil {
		return err
	}
	return r.db.WithTenantSchema(ctx, tenantSchema, fn)
}

// ============================================================================
// COMPANY SETTINGS
// ============================================================================

// GetCompanySettings returns nil without error when the company has no row.
func (r *SettingsRepository) GetCompanySettings(ctx context.Context, companyID string) (*CompanySettings, error) {
	var s CompanySettings
	err := r.inTenant(ctx, func(ctx context.Context) error {
		query := `
			SELECT company_id, day_start, evening_start, night_start, backdate_limit_days,
				reject_overlaps, allow_future_entries, timezone, updated_by, created_at, updated_at
			FROM company_settings
			WHERE company_id = $1
		`
		return r.db.GetContext(ctx, &s, query, companyID)
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertCompanySettings creates or replaces the company's settings
func (r *SettingsRepository) UpsertCompanySettings(ctx context.Context, s *CompanySettings) error {
	return r.inTenant(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO company_settings (
				company_id, day_start, evening_start, night_start, backdate_limit_days,
				reject_overlaps, allow_future_entries, timezone, updated_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (company_id) DO UPDATE SET
				day_start = EXCLUDED.day_start,
				evening_start = EXCLUDED.evening_start,
				night_start = EXCLUDED.night_start,
				backdate_limit_days = EXCLUDED.backdate_limit_days,
				reject_overlaps = EXCLUDED.reject_overlaps,
				allow_future_entries = EXCLUDED.allow_future_entries,
				timezone = EXCLUDED.timezone,
				updated_by = EXCLUDED.updated_by,
				updated_at = NOW()
			RETURNING created_at, updated_at
		`
		err := r.db.QueryRowxContext(ctx, query,
			s.CompanyID, s.DayStart, s.EveningStart, s.NightStart, s.BackdateLimitDays,
			s.RejectOverlaps, s.AllowFutureEntries, s.Timezone, s.UpdatedBy,
		).Scan(&s.CreatedAt, &s.UpdatedAt)
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	})
}

// ============================================================================
// USER SETTINGS
// ============================================================================

// GetUserSettings returns nil without error for unknown or deleted users.
func (r *SettingsRepository) GetUserSettings(ctx context.Context, userID string) (*UserSettings, error) {
	var s UserSettings
	err := r.inTenant(ctx, func(ctx context.Context) error {
		query := `
			SELECT user_id, name, email, role, is_auto_approve, deleted_at, created_at, updated_at
			FROM user_settings
			WHERE user_id = $1 AND deleted_at IS NULL
		`
		return r.db.GetContext(ctx, &s, query, userID)
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertUserSettings creates or replaces a user's settings and clears any
// earlier soft delete.
func (r *SettingsRepository) UpsertUserSettings(ctx context.Context, s *UserSettings) error {
	return r.inTenant(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO user_settings (user_id, name, email, role, is_auto_approve)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id) DO UPDATE SET
				name = EXCLUDED.name,
				email = EXCLUDED.email,
				role = EXCLUDED.role,
				is_auto_approve = EXCLUDED.is_auto_approve,
				deleted_at = NULL,
				updated_at = NOW()
			RETURNING created_at, updated_at
		`
		return r.db.QueryRowxContext(ctx, query,
			s.UserID, s.Name, s.Email, s.Role, s.IsAutoApprove,
		).Scan(&s.CreatedAt, &s.UpdatedAt)
	})
}

// SetAutoApprove changes only the auto-approve flag. It reports whether the
// user exists.
func (r *SettingsRepository) SetAutoApprove(ctx context.Context, userID string, autoApprove bool) (bool, error) {
	var found bool
	err := r.inTenant(ctx, func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `
			UPDATE user_settings SET is_auto_approve = $2, updated_at = NOW()
			WHERE user_id = $1 AND deleted_at IS NULL
		`, userID, autoApprove)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		found = n > 0
		return err
	})
	return found, err
}

// SoftDeleteUserSettings marks a user as deleted. Their entries are kept.
func (r *SettingsRepository) SoftDeleteUserSettings(ctx context.Context, userID string) error {
	return r.inTenant(ctx, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
			UPDATE user_settings SET deleted_at = NOW(), is_auto_approve = FALSE, updated_at = NOW()
			WHERE user_id = $1 AND deleted_at IS NULL
		`, userID)
		return err
	})
}
