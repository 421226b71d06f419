// Package migrations holds the per-tenant schema of the timesheet service
// and applies it to a tenant schema with golang-migrate.
package migrations

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"

	"github.com/tyotrack/tyotrack-backend/pkg/database"
	"github.com/tyotrack/tyotrack-backend/pkg/logger"
	"github.com/tyotrack/tyotrack-backend/pkg/tenant"
)

//go:embed tenant/*.sql
var tenantFS embed.FS

const tenantDir = "tenant"

// Table is the version table golang-migrate keeps in every tenant schema.
const Table = "schema_migrations"

// Migration is one versioned SQL file.
type Migration struct {
	Version uint
	Name    string
	SQL     string
}

// Source opens the embedded tenant migrations.
func Source() (source.Driver, error) {
	return iofs.New(tenantFS, tenantDir)
}

// Tenant returns the tenant migrations ordered by version.
func Tenant() ([]Migration, error) {
	src, err := Source()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var out []Migration
	version, err := src.First()
	for err == nil {
		m, rerr := readUp(src, version)
		if rerr != nil {
			return nil, rerr
		}
		out = append(out, m)
		version, err = src.Next(version)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return out, nil
}

func readUp(src source.Driver, version uint) (Migration, error) {
	r, name, err := src.ReadUp(version)
	if err != nil {
		return Migration{}, fmt.Errorf("migration %d: %w", version, err)
	}
	defer r.Close()

	body, err := io.ReadAll(r)
	if err != nil {
		return Migration{}, fmt.Errorf("migration %d: %w", version, err)
	}
	return Migration{Version: version, Name: name, SQL: string(body)}, nil
}

// Runner applies tenant migrations.
type Runner struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRunner creates a migration runner
func NewRunner(db *database.DB, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{db: db, logger: log.WithComponent("migrations")}
}

// Apply creates the schema if needed and runs every migration above the
// version recorded in its schema_migrations table. It returns the number
// applied. Callers for the same schema are serialized on a session advisory
// lock held from the first version read to the last.
func (r *Runner) Apply(ctx context.Context, schema string) (int, error) {
	if !tenant.ValidSchema(schema) {
		return 0, fmt.Errorf("%w: %q", tenant.ErrInvalidSchema, schema)
	}

	ms, err := Tenant()
	if err != nil {
		return 0, err
	}

	if _, err := r.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+pq.QuoteIdentifier(schema)); err != nil {
		return 0, fmt.Errorf("failed to create schema %s: %w", schema, err)
	}

	m, release, err := r.open(ctx, schema)
	if err != nil {
		return 0, err
	}
	defer release()

	before, err := version(m)
	if err != nil {
		return 0, fmt.Errorf("schema %s: %w", schema, err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to migrate %s: %w", schema, err)
	}
	after, err := version(m)
	if err != nil {
		return 0, fmt.Errorf("schema %s: %w", schema, err)
	}

	applied := 0
	for _, mg := range ms {
		if mg.Version <= before || mg.Version > after {
			continue
		}
		applied++
		r.logger.Info().
			Str("schema", schema).
			Uint("version", mg.Version).
			Str("name", mg.Name).
			Msg("applied migration")
	}
	return applied, nil
}

// open builds a migrator on a dedicated connection that holds the schema
// lock and whose search_path is the tenant schema. The returned release
// resets the connection, drops the lock and returns it to the pool.
func (r *Runner) open(ctx context.Context, schema string) (*migrate.Migrate, func(), error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get connection: %w", err)
	}

	lockKey := "migrate:" + schema
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock(hashtext($1))", lockKey); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to lock schema %s: %w", schema, err)
	}

	// reset runs before the connection goes back to the pool
	reset := func() {
		bg := context.Background()
		if _, err := conn.ExecContext(bg, "RESET search_path"); err != nil {
			r.logger.Warn().Err(err).Str("schema", schema).Msg("failed to reset search_path")
		}
		if _, err := conn.ExecContext(bg, "SELECT pg_advisory_unlock(hashtext($1))", lockKey); err != nil {
			r.logger.Warn().Err(err).Str("schema", schema).Msg("failed to release migration lock")
		}
	}

	if _, err := conn.ExecContext(ctx, "SET search_path TO "+pq.QuoteIdentifier(schema)); err != nil {
		reset()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to select schema %s: %w", schema, err)
	}

	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{
		SchemaName:      schema,
		MigrationsTable: Table,
	})
	if err != nil {
		reset()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open migration driver: %w", err)
	}

	src, err := Source()
	if err != nil {
		reset()
		driver.Close()
		return nil, nil, err
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		reset()
		src.Close()
		driver.Close()
		return nil, nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	m.Log = &migrateLog{logger: r.logger.With().Str("schema", schema).Logger()}

	return m, func() {
		reset()
		m.Close()
	}, nil
}

// version returns the applied version, 0 for a fresh schema. A dirty
// schema needs manual repair and is reported as an error.
func version(m *migrate.Migrate) (uint, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if dirty {
		return v, fmt.Errorf("dirty at version %d", v)
	}
	return v, nil
}
