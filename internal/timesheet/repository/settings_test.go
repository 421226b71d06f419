package repository_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/domain"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/repository"
	"github.com/tyotrack/tyotrack-backend/pkg/testutil"
)

// ============================================================================
// COMPANY SETTINGS
// ============================================================================

func TestSettingsRepository_GetCompanySettings_Missing(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := repository.NewSettingsRepository(m.DB)

	m.ExpectTenantBegin(testutil.TestTenantSchema)
	m.Mock.ExpectQuery(`FROM company_settings`).WithArgs(testutil.TestTenantID).WillReturnError(sql.ErrNoRows)
	m.ExpectRollback()

	s, err := repo.GetCompanySettings(testutil.TestTenantContext(), testutil.TestTenantID)
	require.NoError(t, err)
	assert.Nil(t, s)
	m.ExpectationsWereMet(t)
}

func TestSettingsRepository_GetCompanySettings(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := repository.NewSettingsRepository(m.DB)
	now := time.Now()

	m.ExpectTenantBegin(testutil.TestTenantSchema)
	m.Mock.ExpectQuery(`FROM company_settings`).WithArgs(testutil.TestTenantID).WillReturnRows(
		sqlmock.NewRows([]string{
			"company_id", "day_start", "evening_start", "night_start", "backdate_limit_days",
			"reject_overlaps", "allow_future_entries", "timezone", "updated_by", "created_at", "updated_at",
		}).AddRow(testutil.TestTenantID, "07:00", "15:00", "23:00", 14, false, false, "Europe/Helsinki", nil, now, now))
	m.ExpectCommit()

	s, err := repo.GetCompanySettings(testutil.TestTenantContext(), testutil.TestTenantID)
	require.NoError(t, err)
	require.NotNil(t, s)

	b, err := s.Boundaries()
	require.NoError(t, err)
	assert.Equal(t, domain.ShiftBoundaries{DayStart: 420, EveningStart: 900, NightStart: 1380}, b)
	assert.Equal(t, domain.Policy{BackdateLimitDays: 14}, s.Policy())
	assert.Equal(t, "Europe/Helsinki", s.Location().String())
	m.ExpectationsWereMet(t)
}

func TestSettingsRepository_UpsertCompanySettings(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := repository.NewSettingsRepository(m.DB)
	now := time.Now()

	s := repository.DefaultCompanySettings(testutil.TestTenantID)
	s.UpdatedBy = testutil.PtrString("admin-1")

	m.ExpectTenantBegin(testutil.TestTenantSchema)
	m.Mock.ExpectQuery(`INSERT INTO company_settings`).
		WithArgs(testutil.TestTenantID, "06:00", "18:00", "22:00", 30, true, false, "UTC", "admin-1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	m.ExpectCommit()

	require.NoError(t, repo.UpsertCompanySettings(testutil.TestTenantContext(), s))
	assert.Equal(t, now, s.UpdatedAt)
	m.ExpectationsWereMet(t)
}

func TestCompanySettings_Defaults(t *testing.T) {
	s := repository.DefaultCompanySettings("c1")

	b, err := s.Boundaries()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultBoundaries(), b)
	assert.Equal(t, domain.DefaultPolicy(), s.Policy())
	assert.Equal(t, time.UTC, s.Location())
}

func TestCompanySettings_UnknownTimezoneFallsBackToUTC(t *testing.T) {
	s := repository.DefaultCompanySettings("c1")
	s.Timezone = "Mars/Olympus_Mons"
	assert.Equal(t, time.UTC, s.Location())
}

// ============================================================================
// USER SETTINGS
// ============================================================================

func TestSettingsRepository_SetAutoApprove(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := repository.NewSettingsRepository(m.DB)

	m.ExpectTenantBegin(testutil.TestTenantSchema)
	m.Mock.ExpectExec(`UPDATE user_settings SET is_auto_approve`).WithArgs("user-1", true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.ExpectCommit()

	found, err := repo.SetAutoApprove(testutil.TestTenantContext(), "user-1", true)
	require.NoError(t, err)
	assert.True(t, found)
	m.ExpectationsWereMet(t)
}

func TestSettingsRepository_SetAutoApprove_UnknownUser(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := repository.NewSettingsRepository(m.DB)

	m.ExpectTenantBegin(testutil.TestTenantSchema)
	m.Mock.ExpectExec(`UPDATE user_settings SET is_auto_approve`).WillReturnResult(sqlmock.NewResult(0, 0))
	m.ExpectCommit()

	found, err := repo.SetAutoApprove(testutil.TestTenantContext(), "ghost", true)
	require.NoError(t, err)
	assert.False(t, found)
	m.ExpectationsWereMet(t)
}

func TestSettingsRepository_GetUserSettings_Deleted(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := repository.NewSettingsRepository(m.DB)

	m.ExpectTenantBegin(testutil.TestTenantSchema)
	m.Mock.ExpectQuery(`FROM user_settings\s+WHERE user_id = \$1 AND deleted_at IS NULL`).WithArgs("gone").
		WillReturnError(sql.ErrNoRows)
	m.ExpectRollback()

	s, err := repo.GetUserSettings(testutil.TestTenantContext(), "gone")
	require.NoError(t, err)
	assert.Nil(t, s)
	m.ExpectationsWereMet(t)
}
