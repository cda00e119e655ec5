package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

const migrationsTable = "schema_migrations"

var (
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply the goose migrations under db/migrations",
		Long: `Apply pending migrations. --rollback undoes the latest one, --status prints
the applied state and --to migrates up to a specific version.`,
		RunE: runMigration,
	}
	migrateRollback bool
	migrateStatus   bool
	migrateTo       int64
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "roll back the latest migration")
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "print migration status and exit")
	migrateCmd.Flags().Int64Var(&migrateTo, "to", 0, "migrate up to this version instead of the latest")
	migrateCmd.Flags().StringVarP(&migrateDir, "dir", "d", "db/migrations", "sql migrations directory")
	migrateCmd.MarkFlagsMutuallyExclusive("rollback", "status", "to")
}

// migrationCommand maps the flags onto a goose command and its arguments.
func migrationCommand() (string, []string) {
	switch {
	case migrateStatus:
		return "status", nil
	case migrateRollback:
		return "down", nil
	case migrateTo > 0:
		return "up-to", []string{fmt.Sprint(migrateTo)}
	default:
		return "up", nil
	}
}

func runMigration(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	lg := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("component", "migrate")

	db, err := goose.OpenDBWithDriver("pgx", cfg.Database.Source)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	goose.SetTableName(migrationsTable)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	command, args := migrationCommand()
	lg.Info("running migrations", "command", command, "dir", migrateDir)
	if err := goose.RunContext(ctx, command, db, migrateDir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
