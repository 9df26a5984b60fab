// Command sneakers runs the sneaker rotation tracker.
//
//	sneakers serve              start the HTTP server
//	sneakers migrate            apply pending database migrations
//	sneakers migrate version    print the current schema version
//
// Configuration comes from config.yaml (or --config) with SNEAKERS_*
// environment variables on top, e.g. SNEAKERS_DATABASE_DRIVER=postgres.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sakif/sneaker-rotation/internal/config"
	"github.com/sakif/sneaker-rotation/internal/logger"
)

var (
	// Global flags
	configPath string
	logLevel   string

	// Set by PersistentPreRunE for every subcommand.
	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sneakers",
	Short: "Track your sneaker collection and what is in rotation",
	Long: `sneakers serves a small web app for keeping track of owned sneakers:
tag them, rate them, pick the pairs currently in rotation, and browse
other users' collections.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		log, err = logger.New(logger.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			Output: cfg.Log.Output,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		zap.ReplaceGlobals(log)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
