package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/barter-hub/barter-hub/internal/config"
)

var (
	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "barter-hub",
	Short: "Barter exchange negotiation service",
	Long: `barter-hub runs the exchange negotiation engine: users list items,
propose swaps, negotiate over a per-exchange chat and rate each other once
the swap has taken place.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		logger = zerolog.New(os.Stdout).Level(cfg.LogLevel).With().Timestamp().Logger()
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending Postgres migrations and exit",
	RunE:  runMigrate,
}

func init() {
	serveCmd.Flags().Bool("migrate", true, "apply pending migrations before serving (postgres store only)")
	migrateCmd.Flags().String("dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
