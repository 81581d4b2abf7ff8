package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
	"github.com/projectflow/loginguard/internal/config"
)

// MigrationsFS holds the goose migrations, one directory per driver
//
//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var MigrationsFS embed.FS

// MigrationsDir returns the embedded directory for a driver
func MigrationsDir(driver string) (string, error) {
	switch driver {
	case config.DriverPostgres:
		return "migrations/postgres", nil
	case config.DriverSQLite:
		return "migrations/sqlite", nil
	}
	return "", fmt.Errorf("no migrations for driver %q", driver)
}

func gooseDialect(driver string) goose.Dialect {
	if driver == config.DriverSQLite {
		return goose.DialectSQLite3
	}
	return goose.DialectPostgres
}

// Migrate applies all pending migrations for driver to db
func Migrate(ctx context.Context, db *sql.DB, driver string, logger *slog.Logger) error {
	dir, err := MigrationsDir(driver)
	if err != nil {
		return err
	}

	fsys, err := fs.Sub(MigrationsFS, dir)
	if err != nil {
		return fmt.Errorf("unable to open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(gooseDialect(driver), db, fsys)
	if err != nil {
		return fmt.Errorf("unable to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	for _, result := range results {
		logger.Info("migration applied",
			slog.String("driver", driver),
			slog.Int64("version", result.Source.Version),
			slog.Duration("duration", result.Duration),
		)
	}

	return nil
}
