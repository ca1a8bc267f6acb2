package cli

import (
	"github.com/spf13/cobra"

	"csc-ledger/internal/app"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("port", "", "listen address, e.g. :8080 (overrides SERVER_PORT)")
	serveCmd.Flags().String("storage", "", "storage driver: postgres|memory (overrides STORAGE_DRIVER)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API for grants, credit consumption, wallet movements and withdrawals.
Balances are cached in Redis when REDIS_ADDR is set and ledger events are
published to Kafka when KAFKA_BROKERS is set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger := setup("ledger-api")

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Server.Port = port
	}
	if driver, _ := cmd.Flags().GetString("storage"); driver != "" {
		cfg.Storage.Driver = driver
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	return a.Run()
}
