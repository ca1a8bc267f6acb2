package cli

import (
	"github.com/spf13/cobra"

	"csc-ledger/internal/app"
)

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().Int("partitions", 0, "number of payment topic partitions to consume (overrides KAFKA_PARTITIONS)")
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume payment events and apply them to the ledger",
	Long: `Consume purchase, commission and bonus events from the payments topic and
apply them as grants and wallet credits. Events are applied idempotently by
reference, so redelivery is safe.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, logger := setup("ledger-worker")

	if partitions, _ := cmd.Flags().GetInt("partitions"); partitions > 0 {
		cfg.Kafka.Partitions = partitions
	}

	w, err := app.NewWorker(cfg, logger)
	if err != nil {
		return err
	}
	return w.Run()
}
