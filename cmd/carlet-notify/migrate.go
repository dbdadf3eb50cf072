package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"carlet-notify/internal/infra/db"
)

var errDropNotConfirmed = errors.New("migrate down drops all reports and users; pass --yes to confirm")

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or drop the database schema",
	}
	cmd.AddCommand(migrateUpCmd(), migrateDownCmd())
	return cmd
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Create the tables, indexes and report change trigger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, db.MigrateUp, "schema applied")
		},
	}
}

func migrateDownCmd() *cobra.Command {
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Drop the report change trigger and all tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return errDropNotConfirmed
			}
			return runMigration(cmd, db.MigrateDown, "schema dropped")
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm dropping every table")
	return cmd
}

// runMigration connects without applying the schema first and runs migrate.
func runMigration(cmd *cobra.Command, migrate func(*sql.DB) error, done string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := initLogger()
	database, err := connectDatabase(ctx, logger)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	if err := migrate(database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("Migration finished", slog.String("result", done))
	fmt.Fprintln(cmd.OutOrStdout(), done)
	return nil
}
