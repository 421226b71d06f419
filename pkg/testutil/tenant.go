package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/migrations"
	"github.com/tyotrack/tyotrack-backend/pkg/database"
	"github.com/tyotrack/tyotrack-backend/pkg/tenant"
)

// TestTenant represents a tenant created for testing
type TestTenant struct {
	ID         string
	Name       string
	Slug       string
	SchemaName string
}

// TenantManager manages test tenant schemas
type TenantManager struct {
	raw     *sqlx.DB
	db      *database.DB
	tenants []TestTenant
	mu      sync.Mutex
}

// NewTenantManager creates a new tenant manager for tests
func NewTenantManager(raw *sqlx.DB, db *database.DB) *TenantManager {
	return &TenantManager{raw: raw, db: db}
}

// CreateTenant registers a tenant and creates its empty schema.
func (tm *TenantManager) CreateTenant(ctx context.Context, name string) (*TestTenant, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	slug := strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	t := TestTenant{
		ID:         uuid.New().String(),
		Name:       name,
		Slug:       slug,
		SchemaName: tenant.SchemaForSlug(slug),
	}

	if _, err := tm.raw.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+pq.QuoteIdentifier(t.SchemaName)); err != nil {
		return nil, fmt.Errorf("failed to create tenant schema: %w", err)
	}

	_, err := tm.raw.ExecContext(ctx, `
		INSERT INTO public.companies (id, name, slug, schema_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO NOTHING
	`, t.ID, t.Name, t.Slug, t.SchemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to register tenant: %w", err)
	}

	tm.tenants = append(tm.tenants, t)
	return &t, nil
}

// CreateTenantWithMigrations creates a tenant and applies the timesheet
// migrations through the same runner the CLI uses.
func (tm *TenantManager) CreateTenantWithMigrations(ctx context.Context, name string) (*TestTenant, error) {
	t, err := tm.CreateTenant(ctx, name)
	if err != nil {
		return nil, err
	}

	if _, err := migrations.NewRunner(tm.db, nil).Apply(ctx, t.SchemaName); err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return t, nil
}

// DropTenant removes a tenant schema completely
func (tm *TenantManager) DropTenant(ctx context.Context, t *TestTenant) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if err := tm.drop(ctx, *t); err != nil {
		return err
	}

	for i, tracked := range tm.tenants {
		if tracked.ID == t.ID {
			tm.tenants = append(tm.tenants[:i], tm.tenants[i+1:]...)
			break
		}
	}
	return nil
}

// Cleanup drops all tenant schemas created by this manager.
func (tm *TenantManager) Cleanup(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	var lastErr error
	for _, t := range tm.tenants {
		if err := tm.drop(ctx, t); err != nil {
			lastErr = err
		}
	}
	tm.tenants = nil
	return lastErr
}

func (tm *TenantManager) drop(ctx context.Context, t TestTenant) error {
	if _, err := tm.raw.ExecContext(ctx, "DROP SCHEMA IF EXISTS "+pq.QuoteIdentifier(t.SchemaName)+" CASCADE"); err != nil {
		return fmt.Errorf("failed to drop tenant schema: %w", err)
	}
	if _, err := tm.raw.ExecContext(ctx, "DELETE FROM public.companies WHERE id = $1", t.ID); err != nil {
		return fmt.Errorf("failed to delete tenant record: %w", err)
	}
	return nil
}

// WithTestTenant creates a context with tenant information for testing.
func WithTestTenant(ctx context.Context, t *TestTenant) context.Context {
	return tenant.WithTenantContext(ctx, t.ID, t.Slug, t.SchemaName)
}

// TestTenantContext creates a context with a fake tenant for unit tests
// that don't touch a real database.
func TestTenantContext() context.Context {
	return tenant.WithTenantContext(
		context.Background(),
		TestTenantID,
		"test-tenant",
		TestTenantSchema,
	)
}

// Identifiers used by TestTenantContext.
const (
	TestTenantID     = "6f1c2a52-0d3e-4c8b-9a55-1d2e3f4a5b6c"
	TestTenantSchema = "tenant_test"
)
