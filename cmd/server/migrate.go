package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sheikh-saqib/transaction-orchestrator/internal/config"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/logging"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/storage/sqlstore"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the transactions schema in the configured SQL store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := logging.Setup(cfg.Logging)

			if cfg.Store.Driver == "memory" {
				logger.Info().Msg("memory store selected, nothing to migrate")
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			store, err := sqlstore.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info().Str("driver", cfg.Store.Driver).Msg("schema applied")
			return nil
		},
	}
}
