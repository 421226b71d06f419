// Package tenant carries the company a request acts for. Every company is a
// tenant with its own Postgres schema.
package tenant

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

type contextKey struct{}

// SchemaPrefix is prepended to a company slug to form its schema name.
const SchemaPrefix = "tenant_"

var (
	// ErrNoTenantInContext is returned when tenant context is missing
	ErrNoTenantInContext = errors.New("no tenant in context")
	// ErrInvalidSchema is returned for schema names that are not safe identifiers
	ErrInvalidSchema = errors.New("invalid tenant schema")

	schemaPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)
	slugCleaner   = regexp.MustCompile(`[^a-z0-9_]+`)
)

// Info identifies the company behind a request.
type Info struct {
	ID     string
	Slug   string
	Schema string
}

// WithTenant stores the tenant on ctx. Called by the auth middleware and by
// event consumers.
func WithTenant(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, contextKey{}, info)
}

// WithTenantContext is shorthand for WithTenant.
func WithTenantContext(ctx context.Context, id, slug, schema string) context.Context {
	return WithTenant(ctx, Info{ID: id, Slug: slug, Schema: schema})
}

// FromContext returns the tenant stored on ctx.
func FromContext(ctx context.Context) (Info, error) {
	info, ok := ctx.Value(contextKey{}).(Info)
	if !ok || info.ID == "" {
		return Info{}, ErrNoTenantInContext
	}
	return info, nil
}

// TenantID extracts the company ID from context
func TenantID(ctx context.Context) (string, error) {
	info, err := FromContext(ctx)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// TenantSchema extracts the schema name from context. Repositories use it to
// set search_path.
func TenantSchema(ctx context.Context) (string, error) {
	info, err := FromContext(ctx)
	if err != nil {
		return "", err
	}
	if info.Schema == "" {
		return "", ErrNoTenantInContext
	}
	if !ValidSchema(info.Schema) {
		return "", ErrInvalidSchema
	}
	return info.Schema, nil
}

// ValidSchema reports whether schema is a lower-case Postgres identifier.
func ValidSchema(schema string) bool {
	return schemaPattern.MatchString(schema)
}

// SchemaForSlug derives the schema name for a company slug, e.g.
// "acme-cleaning" becomes "tenant_acme_cleaning".
func SchemaForSlug(slug string) string {
	s := slugCleaner.ReplaceAllString(strings.ToLower(slug), "_")
	return SchemaPrefix + strings.Trim(s, "_")
}
