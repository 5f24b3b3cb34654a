package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/trogers1052/market-notifier/internal/config"
	"github.com/trogers1052/market-notifier/internal/logging"
)

// Execute runs the notifier CLI
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "notifier",
		Short:         "Market monitor, notification dispatcher and scenario projector",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), projectCmd(), migrateCmd())
	return root
}

// loadConfig reads and validates the environment configuration and builds the logger
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg := config.Load()
	log := logging.New(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	if err := cfg.Validate(); err != nil {
		return nil, log, err
	}
	logging.SetGlobalLogger(log)
	return cfg, log, nil
}
