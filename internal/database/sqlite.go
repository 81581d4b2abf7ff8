package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteDB is the single-node ledger backend
type SQLiteDB struct {
	Conn   *sql.DB
	logger *slog.Logger
}

// NewSQLiteConnection opens (or creates) the SQLite database at path.
// ":memory:" gives a private in-memory database.
func NewSQLiteConnection(path string, logger *slog.Logger) (*SQLiteDB, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}

	// One writer at a time; an in-memory database only exists on its own connection
	conn.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to ping sqlite database: %w", err)
	}

	logger.Info("database connection established",
		slog.String("driver", "sqlite"),
		slog.String("path", path),
	)

	return &SQLiteDB{Conn: conn, logger: logger}, nil
}

func (db *SQLiteDB) Close() {
	db.logger.Info("closing sqlite database")
	db.Conn.Close()
}

func (db *SQLiteDB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.Conn.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
