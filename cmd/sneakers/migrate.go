package main

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/sakif/sneaker-rotation/internal/migrate"
	"github.com/sakif/sneaker-rotation/internal/server"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Opens the configured database and applies every pending migration.
serve does the same on start-up; run this on its own to migrate ahead of a
deploy.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := server.OpenStore(cmd.Context(), cfg.Database, log)
		if err != nil {
			return err
		}
		defer store.Close()
		log.Info("database is up to date", zap.String("driver", cfg.Database.Driver))
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		driverName, dsn := cfg.Database.Driver, cfg.Database.Path
		if cfg.Database.Driver == migrate.Postgres {
			driverName, dsn = "pgx", cfg.Database.DSN
		}

		db, err := sql.Open(driverName, dsn)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		version, err := migrate.Version(cmd.Context(), db, cfg.Database.Driver, log)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), version)
		return nil
	},
}
