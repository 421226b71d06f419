package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/migrations"
	"github.com/tyotrack/tyotrack-backend/pkg/config"
	"github.com/tyotrack/tyotrack-backend/pkg/database"
	"github.com/tyotrack/tyotrack-backend/pkg/logger"
	"github.com/tyotrack/tyotrack-backend/pkg/tenant"
)

func newMigrateCmd() *cobra.Command {
	var schemas, slugs []string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply timesheet migrations to tenant schemas",
		Example: `  tyotrackctl migrate --schema tenant_acme
  tyotrackctl migrate --slug acme-cleaning --slug nordic-care`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := migrationTargets(schemas, slugs)
			if err != nil {
				return err
			}

			cfg, err := config.LoadWithValidation("tyotrackctl")
			if err != nil {
				return err
			}
			log := logger.New("tyotrackctl", cfg.Server.Environment)

			db, err := database.New(&cfg.Database, log)
			if err != nil {
				return err
			}
			defer db.Close()

			runner := migrations.NewRunner(db, log)
			for _, schema := range targets {
				n, err := runner.Apply(cmd.Context(), schema)
				if err != nil {
					return fmt.Errorf("%s: %w", schema, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d migration(s) applied\n", schema, n)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&schemas, "schema", nil, "tenant schema to migrate (repeatable)")
	cmd.Flags().StringSliceVar(&slugs, "slug", nil, "company slug whose schema to migrate (repeatable)")
	return cmd
}

// migrationTargets resolves the flags to validated schema names
func migrationTargets(schemas, slugs []string) ([]string, error) {
	targets := append([]string{}, schemas...)
	for _, slug := range slugs {
		targets = append(targets, tenant.SchemaForSlug(slug))
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("at least one --schema or --slug is required")
	}
	for _, s := range targets {
		if !tenant.ValidSchema(s) {
			return nil, fmt.Errorf("%w: %q", tenant.ErrInvalidSchema, s)
		}
	}
	return targets, nil
}
