// Package migrate applies the embedded SQL migrations with goose.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/sakif/sneaker-rotation/migrations"
)

// Dialect names accepted by Up. They match the database.driver config values.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// Up runs all pending migrations for the given driver against db and returns
// the number of migrations applied.
func Up(ctx context.Context, db *sql.DB, driver string, log *zap.Logger) (int, error) {
	provider, err := newProvider(db, driver, log)
	if err != nil {
		return 0, err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrate: applying %s migrations: %w", driver, err)
	}
	for _, r := range results {
		log.Info("migration applied",
			zap.Int64("version", r.Source.Version),
			zap.String("path", r.Source.Path),
			zap.Duration("duration", r.Duration),
		)
	}
	return len(results), nil
}

// Version returns the latest applied migration version.
func Version(ctx context.Context, db *sql.DB, driver string, log *zap.Logger) (int64, error) {
	provider, err := newProvider(db, driver, log)
	if err != nil {
		return 0, err
	}
	v, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrate: reading %s version: %w", driver, err)
	}
	return v, nil
}

func newProvider(db *sql.DB, driver string, log *zap.Logger) (*goose.Provider, error) {
	var dialect goose.Dialect
	switch driver {
	case SQLite:
		dialect = goose.DialectSQLite3
	case Postgres:
		dialect = goose.DialectPostgres
	default:
		return nil, fmt.Errorf("migrate: unsupported driver %q", driver)
	}

	fsys, err := fs.Sub(migrations.FS, driver)
	if err != nil {
		return nil, fmt.Errorf("migrate: opening %s migrations: %w", driver, err)
	}

	provider, err := goose.NewProvider(dialect, db, fsys, goose.WithLogger(gooseLogger{log.Sugar()}))
	if err != nil {
		return nil, fmt.Errorf("migrate: creating provider: %w", err)
	}
	return provider, nil
}

// gooseLogger routes goose output through zap. Fatalf is downgraded to an
// error log; goose's Provider reports failures through returned errors.
type gooseLogger struct {
	s *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...any) { l.s.Infof(format, v...) }
func (l gooseLogger) Fatalf(format string, v ...any) { l.s.Errorf(format, v...) }
