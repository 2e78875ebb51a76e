package cli

import (
	"context"
	"database/sql"

	"chapter-quiz-service/internal/config"
	pgmigrations "chapter-quiz-service/internal/infra/postgres/migrations"
	"chapter-quiz-service/internal/infra/sqlite"
	"chapter-quiz-service/internal/logger"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			return runMigrationsWithConfig(cmd.Context(), cfg, log)
		},
	}
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	if cfg.Postgres.URL == "" {
		return migrateSQLite(ctx, cfg.SQLite.Path, log)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
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
		log.Info("postgres schema up to date")
		return nil
	}
	log.Info("migrations applied", "backend", "postgres", "group", group.String())
	return nil
}

func migrateSQLite(ctx context.Context, path string, log *logger.Logger) error {
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	applied, err := store.Migrate(ctx, log)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		log.Info("sqlite schema up to date", "path", path)
		return nil
	}
	log.Info("migrations applied", "backend", "sqlite", "path", path, "files", applied)
	return nil
}
