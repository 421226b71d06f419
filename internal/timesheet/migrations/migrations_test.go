package migrations_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/migrations"
	"github.com/tyotrack/tyotrack-backend/pkg/database"
	"github.com/tyotrack/tyotrack-backend/pkg/tenant"
	"github.com/tyotrack/tyotrack-backend/pkg/testutil"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	ctx := context.Background()
	if testutil.IntegrationEnabled() {
		var err error
		if suite, err = testutil.NewIntegrationSuite(ctx); err != nil {
			panic(err)
		}
	}

	code := m.Run()
	if suite != nil {
		_ = suite.Cleanup(ctx)
		testutil.TerminateContainer(ctx)
	}
	os.Exit(code)
}

// ============================================================================
// EMBEDDED FILES
// ============================================================================

func TestTenant_OrderedAndNamed(t *testing.T) {
	ms, err := migrations.Tenant()
	require.NoError(t, err)
	require.Len(t, ms, 3)

	assert.Equal(t, uint(1), ms[0].Version)
	assert.Equal(t, "create_time_entries", ms[0].Name)
	assert.Contains(t, ms[0].SQL, "CREATE TABLE IF NOT EXISTS time_entries")
	assert.Contains(t, ms[0].SQL, "time_entries_minute_range")

	assert.Equal(t, uint(2), ms[1].Version)
	assert.Contains(t, ms[1].SQL, "company_settings")

	assert.Equal(t, uint(3), ms[2].Version)
	assert.Equal(t, "create_projects", ms[2].Name)
	assert.Contains(t, ms[2].SQL, "CREATE TABLE IF NOT EXISTS projects")
	assert.Contains(t, ms[2].SQL, "CREATE TABLE IF NOT EXISTS workplaces")
}

func TestRunner_RejectsInvalidSchema(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()

	_, err = migrations.NewRunner(database.Wrap(sqlx.NewDb(raw, "postgres"), nil), nil).
		Apply(context.Background(), "Robert'); DROP TABLE")
	assert.ErrorIs(t, err, tenant.ErrInvalidSchema)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ============================================================================
// AGAINST POSTGRES
// ============================================================================

func TestRunner_AppliesOnceIntoTenantSchema(t *testing.T) {
	testutil.RequireSuite(t, suite)
	ctx := context.Background()

	tt, err := suite.TenantManager.CreateTenant(ctx, "Migrate Once")
	require.NoError(t, err)
	t.Cleanup(func() { _ = suite.TenantManager.DropTenant(ctx, tt) })

	ms, err := migrations.Tenant()
	require.NoError(t, err)

	runner := migrations.NewRunner(suite.DB, suite.Logger)
	n, err := runner.Apply(ctx, tt.SchemaName)
	require.NoError(t, err)
	assert.Equal(t, len(ms), n)

	n, err = runner.Apply(ctx, tt.SchemaName)
	require.NoError(t, err)
	assert.Zero(t, n)

	var tables []string
	require.NoError(t, suite.RawDB.SelectContext(ctx, &tables, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 ORDER BY table_name`, tt.SchemaName))
	assert.Equal(t, []string{
		"code_counters", "company_settings", "projects", "schema_migrations",
		"time_entries", "user_settings", "workplaces",
	}, tables)

	var publicTables int
	require.NoError(t, suite.RawDB.GetContext(ctx, &publicTables, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = 'time_entries'`))
	assert.Zero(t, publicTables)

	var version int
	require.NoError(t, suite.RawDB.GetContext(ctx, &version,
		`SELECT version FROM `+tt.SchemaName+`.schema_migrations`))
	assert.Equal(t, int(ms[len(ms)-1].Version), version)
}

func TestRunner_ConcurrentApplyRunsEachMigrationOnce(t *testing.T) {
	testutil.RequireSuite(t, suite)
	ctx := context.Background()

	tt, err := suite.TenantManager.CreateTenant(ctx, "Migrate Race")
	require.NoError(t, err)
	t.Cleanup(func() { _ = suite.TenantManager.DropTenant(ctx, tt) })

	ms, err := migrations.Tenant()
	require.NoError(t, err)

	runner := migrations.NewRunner(suite.DB, nil)
	var wg sync.WaitGroup
	counts := make([]int, 4)
	errs := make([]error, 4)
	for i := range counts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			counts[i], errs[i] = runner.Apply(ctx, tt.SchemaName)
		}(i)
	}
	wg.Wait()

	total := 0
	for i := range counts {
		require.NoError(t, errs[i])
		total += counts[i]
	}
	assert.Equal(t, len(ms), total)
}
