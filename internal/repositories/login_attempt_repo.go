package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/projectflow/loginguard/internal/database"
	"github.com/projectflow/loginguard/internal/models"
)

// LoginAttemptRepository is the Postgres-backed login attempt ledger
type LoginAttemptRepository struct {
	db *database.DB
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository
func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

// RecordAttempt appends a login attempt to the ledger, assigning an ID if missing
func (r *LoginAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}

	query := `
		INSERT INTO login_attempts (id, email, ip_address, user_agent, success, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.ID,
		attempt.Email,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.Success,
		attempt.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert login attempt: %w", models.ErrLedgerUnavailable, database.MapPostgresError(err))
	}
	return nil
}

// GetFailedAttemptsSince returns failed attempts for an email at or after since, newest first
func (r *LoginAttemptRepository) GetFailedAttemptsSince(ctx context.Context, email string, since time.Time) ([]models.LoginAttempt, error) {
	query := `
		SELECT id, email, ip_address, user_agent, success, attempted_at
		FROM login_attempts
		WHERE email = $1 AND success = false AND attempted_at >= $2
		ORDER BY attempted_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, email, since)
	if err != nil {
		return nil, fmt.Errorf("%w: query failed attempts: %w", models.ErrLedgerUnavailable, err)
	}
	defer rows.Close()

	var attempts []models.LoginAttempt
	for rows.Next() {
		var a models.LoginAttempt
		if err := rows.Scan(&a.ID, &a.Email, &a.IPAddress, &a.UserAgent, &a.Success, &a.AttemptedAt); err != nil {
			return nil, fmt.Errorf("%w: scan failed attempt: %w", models.ErrLedgerUnavailable, err)
		}
		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate failed attempts: %w", models.ErrLedgerUnavailable, err)
	}

	return attempts, nil
}

// DeleteFailedAttempts clears the failure streak for an email
func (r *LoginAttemptRepository) DeleteFailedAttempts(ctx context.Context, email string) error {
	query := `DELETE FROM login_attempts WHERE email = $1 AND success = false`
	if _, err := r.db.Pool.Exec(ctx, query, email); err != nil {
		return fmt.Errorf("%w: delete failed attempts: %w", models.ErrLedgerUnavailable, err)
	}
	return nil
}

// DeleteAttemptsBefore removes every attempt older than cutoff and returns the number removed
func (r *LoginAttemptRepository) DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM login_attempts WHERE attempted_at < $1`
	tag, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: delete old attempts: %w", models.ErrLedgerUnavailable, err)
	}
	return tag.RowsAffected(), nil
}

// HealthCheck pings the underlying pool
func (r *LoginAttemptRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
