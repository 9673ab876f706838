package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marloweh/suggestd/internal/config"
	"github.com/marloweh/suggestd/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}

			cmd.Printf("Database migrated to schema version %d\n", storage.ExpectedSchemaVersion)
			return nil
		},
	}
}
