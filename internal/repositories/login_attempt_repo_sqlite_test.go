package repositories_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/projectflow/loginguard/internal/config"
	"github.com/projectflow/loginguard/internal/database"
	"github.com/projectflow/loginguard/internal/models"
	"github.com/projectflow/loginguard/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLiteRepo(t *testing.T) *repositories.SQLiteLoginAttemptRepository {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.NewSQLiteConnection(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, database.Migrate(context.Background(), db.Conn, config.DriverSQLite, logger))

	return repositories.NewSQLiteLoginAttemptRepository(db)
}

func strPtr(s string) *string { return &s }

func TestSQLiteRepository_RecordAndQueryFailedAttempts(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := repo.RecordAttempt(ctx, &models.LoginAttempt{
			Email:       "a@b.com",
			IPAddress:   strPtr("203.0.113.7"),
			UserAgent:   strPtr("Mozilla/5.0"),
			Success:     false,
			AttemptedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	require.NoError(t, repo.RecordAttempt(ctx, &models.LoginAttempt{
		Email: "a@b.com", Success: true, AttemptedAt: base.Add(5 * time.Minute),
	}))
	require.NoError(t, repo.RecordAttempt(ctx, &models.LoginAttempt{
		Email: "other@b.com", Success: false, AttemptedAt: base,
	}))

	attempts, err := repo.GetFailedAttemptsSince(ctx, "a@b.com", base)
	require.NoError(t, err)
	require.Len(t, attempts, 3)

	// Newest first
	assert.True(t, attempts[0].AttemptedAt.Equal(base.Add(2*time.Minute)))
	assert.True(t, attempts[2].AttemptedAt.Equal(base))
	assert.NotEmpty(t, attempts[0].ID)
	require.NotNil(t, attempts[0].IPAddress)
	assert.Equal(t, "203.0.113.7", *attempts[0].IPAddress)
	assert.False(t, attempts[0].Success)
}

func TestSQLiteRepository_LowerBoundIsInclusive(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.RecordAttempt(ctx, &models.LoginAttempt{Email: "a@b.com", AttemptedAt: base}))
	require.NoError(t, repo.RecordAttempt(ctx, &models.LoginAttempt{Email: "a@b.com", AttemptedAt: base.Add(-time.Millisecond)}))

	attempts, err := repo.GetFailedAttemptsSince(ctx, "a@b.com", base)
	require.NoError(t, err)
	assert.Len(t, attempts, 1)
}

func TestSQLiteRepository_NullMetadataRoundTrips(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.RecordAttempt(ctx, &models.LoginAttempt{Email: "a@b.com", AttemptedAt: now}))

	attempts, err := repo.GetFailedAttemptsSince(ctx, "a@b.com", now.Add(-time.Second))
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Nil(t, attempts[0].IPAddress)
	assert.Nil(t, attempts[0].UserAgent)
}

func TestSQLiteRepository_DeleteFailedAttemptsKeepsSuccesses(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.RecordAttempt(ctx, &models.LoginAttempt{Email: "a@b.com", AttemptedAt: now}))
	require.NoError(t, repo.RecordAttempt(ctx, &models.LoginAttempt{Email: "a@b.com", Success: true, AttemptedAt: now}))
	require.NoError(t, repo.RecordAttempt(ctx, &models.LoginAttempt{Email: "keep@b.com", AttemptedAt: now}))

	require.NoError(t, repo.DeleteFailedAttempts(ctx, "a@b.com"))

	attempts, err := repo.GetFailedAttemptsSince(ctx, "a@b.com", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, attempts)

	others, err := repo.GetFailedAttemptsSince(ctx, "keep@b.com", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, others, 1)

	// The success row is still there and only goes away with age
	removed, err := repo.DeleteAttemptsBefore(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}

func TestSQLiteRepository_DeleteAttemptsBefore(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.RecordAttempt(ctx, &models.LoginAttempt{Email: "a@b.com", AttemptedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, repo.RecordAttempt(ctx, &models.LoginAttempt{Email: "a@b.com", AttemptedAt: now.Add(-time.Minute)}))

	removed, err := repo.DeleteAttemptsBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	attempts, err := repo.GetFailedAttemptsSince(ctx, "a@b.com", now.Add(-72*time.Hour))
	require.NoError(t, err)
	assert.Len(t, attempts, 1)
}

func TestSQLiteRepository_ClosedDatabaseReportsLedgerUnavailable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.NewSQLiteConnection(":memory:", logger)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db.Conn, config.DriverSQLite, logger))
	repo := repositories.NewSQLiteLoginAttemptRepository(db)
	db.Close()

	_, err = repo.GetFailedAttemptsSince(context.Background(), "a@b.com", time.Now())
	assert.ErrorIs(t, err, models.ErrLedgerUnavailable)

	err = repo.RecordAttempt(context.Background(), &models.LoginAttempt{Email: "a@b.com", AttemptedAt: time.Now()})
	assert.ErrorIs(t, err, models.ErrLedgerUnavailable)
}
