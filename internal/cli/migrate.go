package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"

	"quizrank-service/internal/config"
	"quizrank-service/internal/infra/postgres"
	pgmigrations "quizrank-service/internal/infra/postgres/migrations"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath)
		},
	}
}

func runMigrations(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	config.NewLogger(cfg)
	return runMigrationsWithConfig(ctx, cfg)
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	db := postgres.Open(cfg.Postgres.URL)
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		config.Logger().Info("no new migrations")
		return nil
	}
	config.Logger().Infof("migrations applied: %s", group)
	return nil
}
