// Package testutil holds the shared test helpers: a Postgres container with
// per-company schemas, sqlmock wrappers, fixtures and HTTP helpers.
package testutil

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultPostgresImage matches the production major version.
	DefaultPostgresImage = "postgres:15-alpine"
	// PostgresImageEnv overrides the image, e.g. to test an upgrade.
	PostgresImageEnv = "TYOTRACK_TEST_POSTGRES_IMAGE"

	testDatabase = "tyotrack_test"
	testUser     = "test"
	testPassword = "test"
)

// PostgresContainer is a running Postgres with its connection string
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// NewPostgresContainer starts Postgres and waits until it accepts
// connections. An empty image means DefaultPostgresImage or the
// PostgresImageEnv override.
func NewPostgresContainer(ctx context.Context, image string) (*PostgresContainer, error) {
	if image == "" {
		image = os.Getenv(PostgresImageEnv)
	}
	if image == "" {
		image = DefaultPostgresImage
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(image),
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUser),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			// Postgres logs readiness twice: once for the init run, once for real.
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{PostgresContainer: container, DSN: dsn}, nil
}

// Connect opens a raw sqlx connection for fixtures and assertions
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// CreateCompanyRegistry creates public.companies, the list of companies
// and the schema each one lives in.
func (c *PostgresContainer) CreateCompanyRegistry(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS public.companies (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			slug VARCHAR(100) UNIQUE NOT NULL,
			schema_name VARCHAR(100) UNIQUE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create company registry: %w", err)
	}
	return nil
}
