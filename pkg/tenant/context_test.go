package tenant_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyotrack/tyotrack-backend/pkg/tenant"
)

func TestTenantContext(t *testing.T) {
	ctx := tenant.WithTenantContext(context.Background(), "company-1", "acme", "tenant_acme")

	id, err := tenant.TenantID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "company-1", id)

	schema, err := tenant.TenantSchema(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tenant_acme", schema)
}

func TestTenantContext_Missing(t *testing.T) {
	_, err := tenant.TenantID(context.Background())
	assert.ErrorIs(t, err, tenant.ErrNoTenantInContext)

	_, err = tenant.TenantSchema(context.Background())
	assert.ErrorIs(t, err, tenant.ErrNoTenantInContext)
}

func TestTenantSchema_RejectsUnsafeNames(t *testing.T) {
	ctx := tenant.WithTenantContext(context.Background(), "company-1", "x", `tenant_x"; DROP TABLE time_entries; --`)

	_, err := tenant.TenantSchema(ctx)
	assert.ErrorIs(t, err, tenant.ErrInvalidSchema)
}

func TestSchemaForSlug(t *testing.T) {
	assert.Equal(t, "tenant_acme_cleaning", tenant.SchemaForSlug("Acme-Cleaning"))
	assert.Equal(t, "tenant_test", tenant.SchemaForSlug("test"))
	assert.True(t, tenant.ValidSchema(tenant.SchemaForSlug("Työ Oy")))
}
