package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"csc-ledger/internal/database"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres schema",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, logger := setup("ledger-migrate")
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("POSTGRES_URL is required")
	}

	db, err := database.NewPostgres(database.PostgresConfig{URL: cfg.Postgres.URL})
	if err != nil {
		return fmt.Errorf("database connection error: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(cmd.Context(), db); err != nil {
		return err
	}
	logger.Info("Schema is up to date")
	return nil
}
