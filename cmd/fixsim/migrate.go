package main

import (
	"fmt"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joripage/fixsim/pkg/infra"
	"github.com/spf13/cobra"
)

var migrateSource string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the event DB schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := setupLogger(cfg, "migrate")
		if err != nil {
			return err
		}
		defer logger.Sync() // nolint

		if cfg.EventDB == nil {
			return fmt.Errorf("event_db is not configured")
		}
		source := migrateSource
		if source == "" {
			source = cfg.EventDB.MigrationSource
		}
		if source == "" {
			source = infra.DefaultMigrationSource
		}
		return infra.GetMigrateTool().Migrate(source, cfg.EventDB.MigrationConnURL)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().StringVar(&migrateSource, "source", "", "migration source URL (default from config)")
}
