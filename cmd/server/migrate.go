package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/habit-tracker/internal/database"
	"github.com/iliyamo/habit-tracker/internal/logger"
)

var migrateList bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long: `Apply the embedded schema migrations in version order.

Each migration runs in its own transaction and is recorded in
schema_version, so running the command again is a no-op.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateList, "list", false, "list embedded migrations without applying them")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if migrateList {
		ms, err := database.Migrations()
		if err != nil {
			return err
		}
		for _, m := range ms {
			fmt.Fprintf(cmd.OutOrStdout(), "%03d %s\n", m.Version, m.Name)
		}
		return nil
	}

	_, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := database.Migrate(context.Background(), db)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("migrations applied", "count", n)
	return nil
}
