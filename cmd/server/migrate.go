package main

import (
	"github.com/spf13/cobra"

	"github.com/barter-hub/barter-hub/internal/infrastructure/postgres"
)

func runMigrate(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = cfg.MigrationsDir
	}
	ctx := cmd.Context()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := postgres.RunMigrations(ctx, pool, dir)
	if err != nil {
		return err
	}
	logger.Info().Strs("applied", applied).Str("dir", dir).Msg("migrations done")
	return nil
}
