package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"csc-ledger/internal/config"
	"csc-ledger/internal/logging"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "ledger",
	Short:         "Entitlement and wallet ledger for the CSC forms marketplace",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides LOG_LEVEL)")
}

// Execute runs the command named on the command line.
func Execute() error {
	return rootCmd.Execute()
}

// setup builds the logger and configuration shared by every subcommand.
func setup(service string) (*config.Config, *logrus.Logger) {
	logger := logging.NewLoggerWithService(service)
	config.LoadEnv(logger)
	if logLevel != "" {
		logger.SetLevel(logging.ParseLevel(logLevel))
	}
	return config.New(), logger
}
