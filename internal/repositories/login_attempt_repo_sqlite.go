package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/projectflow/loginguard/internal/database"
	"github.com/projectflow/loginguard/internal/models"
)

// SQLiteLoginAttemptRepository is the SQLite-backed login attempt ledger.
// attempted_at is stored as Unix milliseconds so range filters compare numerically.
type SQLiteLoginAttemptRepository struct {
	db *database.SQLiteDB
}

// NewSQLiteLoginAttemptRepository creates a new SQLiteLoginAttemptRepository
func NewSQLiteLoginAttemptRepository(db *database.SQLiteDB) *SQLiteLoginAttemptRepository {
	return &SQLiteLoginAttemptRepository{db: db}
}

func (r *SQLiteLoginAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}

	query := `
		INSERT INTO login_attempts (id, email, ip_address, user_agent, success, attempted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Conn.ExecContext(ctx, query,
		attempt.ID,
		attempt.Email,
		nullString(attempt.IPAddress),
		nullString(attempt.UserAgent),
		attempt.Success,
		attempt.AttemptedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%w: insert login attempt: %w", models.ErrLedgerUnavailable, err)
	}
	return nil
}

func (r *SQLiteLoginAttemptRepository) GetFailedAttemptsSince(ctx context.Context, email string, since time.Time) ([]models.LoginAttempt, error) {
	query := `
		SELECT id, email, ip_address, user_agent, success, attempted_at
		FROM login_attempts
		WHERE email = ? AND success = 0 AND attempted_at >= ?
		ORDER BY attempted_at DESC
	`

	rows, err := r.db.Conn.QueryContext(ctx, query, email, since.UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("%w: query failed attempts: %w", models.ErrLedgerUnavailable, err)
	}
	defer rows.Close()

	var attempts []models.LoginAttempt
	for rows.Next() {
		var (
			a         models.LoginAttempt
			ip, agent sql.NullString
			millis    int64
		)
		if err := rows.Scan(&a.ID, &a.Email, &ip, &agent, &a.Success, &millis); err != nil {
			return nil, fmt.Errorf("%w: scan failed attempt: %w", models.ErrLedgerUnavailable, err)
		}
		if ip.Valid {
			a.IPAddress = &ip.String
		}
		if agent.Valid {
			a.UserAgent = &agent.String
		}
		a.AttemptedAt = time.UnixMilli(millis).UTC()
		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate failed attempts: %w", models.ErrLedgerUnavailable, err)
	}

	return attempts, nil
}

func (r *SQLiteLoginAttemptRepository) DeleteFailedAttempts(ctx context.Context, email string) error {
	query := `DELETE FROM login_attempts WHERE email = ? AND success = 0`
	if _, err := r.db.Conn.ExecContext(ctx, query, email); err != nil {
		return fmt.Errorf("%w: delete failed attempts: %w", models.ErrLedgerUnavailable, err)
	}
	return nil
}

func (r *SQLiteLoginAttemptRepository) DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM login_attempts WHERE attempted_at < ?`
	result, err := r.db.Conn.ExecContext(ctx, query, cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("%w: delete old attempts: %w", models.ErrLedgerUnavailable, err)
	}
	return result.RowsAffected()
}

func (r *SQLiteLoginAttemptRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
