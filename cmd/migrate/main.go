package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/projectflow/loginguard/internal/config"
	"github.com/projectflow/loginguard/internal/database"
)

const usage = `usage: migrate [up|up-by-one|down|redo|reset|status|version]

Applies the embedded login attempt ledger migrations to the database
selected by DB_DRIVER and the usual DB_* / SQLITE_PATH settings.`

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if err := run(command, &cfg.Database, flag.Args(), logger); err != nil {
		logger.Error("migration command failed", slog.String("command", command), slog.Any("error", err))
		os.Exit(1)
	}
}

func run(command string, cfg *config.DatabaseConfig, args []string, logger *slog.Logger) error {
	driverName, dsn := cfg.Driver, cfg.DSN()
	if cfg.Driver == config.DriverSQLite {
		dsn = cfg.SQLitePath
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("unable to open database: %w", err)
	}
	defer db.Close()

	dir, err := database.MigrationsDir(cfg.Driver)
	if err != nil {
		return err
	}

	dialect := "postgres"
	if cfg.Driver == config.DriverSQLite {
		dialect = "sqlite3"
	}

	goose.SetBaseFS(database.MigrationsFS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("unable to set dialect: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var extra []string
	if len(args) > 1 {
		extra = args[1:]
	}

	logger.Info("running migrations", slog.String("command", command), slog.String("driver", cfg.Driver))
	return goose.RunContext(ctx, command, db, dir, extra...)
}
