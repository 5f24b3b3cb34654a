package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trogers1052/market-notifier/internal/database"
)

func migrateCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if path == "" {
				path = cfg.Database.MigrationsPath
			}

			db, err := database.New(cfg.Database.ConnectionString())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(path); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info().Str("path", path).Msg("Migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "migrations directory (defaults to DB_MIGRATIONS_PATH)")
	return cmd
}
