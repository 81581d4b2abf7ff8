package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/projectflow/loginguard/internal/models"
	pkglogger "github.com/projectflow/loginguard/pkg/logger"
)

const maxEmailLength = 255

// LoginAttemptRepository defines the ledger operations the lockout policy needs
type LoginAttemptRepository interface {
	RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error
	GetFailedAttemptsSince(ctx context.Context, email string, since time.Time) ([]models.LoginAttempt, error)
	DeleteFailedAttempts(ctx context.Context, email string) error
	DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// LockoutNotifier is told when an email reaches the failure threshold
type LockoutNotifier interface {
	NotifyLockout(ctx context.Context, email string, lockoutEnd time.Time) error
}

// LockoutConfig holds the login attempt policy
type LockoutConfig struct {
	MaxLoginAttempts    int
	LoginAttemptsWindow time.Duration
	LockoutDuration     time.Duration
	Retention           time.Duration // Cleanup removes attempts older than this
	LedgerTimeout       time.Duration // Upper bound for each ledger round-trip; 0 means caller's deadline only
}

// DefaultLockoutConfig returns the standard policy: 5 failures in 15 minutes locks for 15 minutes
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		MaxLoginAttempts:    5,
		LoginAttemptsWindow: 15 * time.Minute,
		LockoutDuration:     15 * time.Minute,
		Retention:           24 * time.Hour,
		LedgerTimeout:       5 * time.Second,
	}
}

// LockoutService decides whether an email may attempt a login and keeps the attempt ledger
type LockoutService struct {
	repo     LoginAttemptRepository
	config   LockoutConfig
	logger   *slog.Logger
	audit    *pkglogger.AuditLogger
	notifier LockoutNotifier
	now      func() time.Time
}

// NewLockoutService creates a new LockoutService
func NewLockoutService(repo LoginAttemptRepository, config LockoutConfig, logger *slog.Logger) *LockoutService {
	return &LockoutService{
		repo:   repo,
		config: config,
		logger: logger,
		audit:  pkglogger.NewAuditLogger(logger),
		now:    time.Now,
	}
}

// SetNotifier enables lockout notifications
func (s *LockoutService) SetNotifier(notifier LockoutNotifier) {
	s.notifier = notifier
}

// SetClock overrides the time source
func (s *LockoutService) SetClock(now func() time.Time) {
	s.now = now
}

// Config returns the active policy
func (s *LockoutService) Config() LockoutConfig {
	return s.config
}

// Check reports whether a login attempt for email is currently permitted.
// Ledger failures fail open: the caller is told the attempt is allowed with the full budget.
func (s *LockoutService) Check(ctx context.Context, email string) (*models.LockoutStatus, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", models.ErrValidation)
	}

	now := s.now()
	failures, err := s.failedAttempts(ctx, email, now)
	if err != nil {
		s.logger.Error("failed to fetch login attempts, allowing login",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return &models.LockoutStatus{Allowed: true, RemainingAttempts: s.config.MaxLoginAttempts}, nil
	}

	status := EvaluateLockout(failures, now, s.config)
	if !status.Allowed {
		s.logger.Warn("login locked out",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Int("failed_attempts", len(failures)),
			slog.Time("lockout_end", *status.LockoutEnd))
	}

	return &status, nil
}

// Record appends an attempt to the ledger. A successful attempt clears the failure streak.
// Ledger errors are logged and never returned; only missing input is an error.
func (s *LockoutService) Record(ctx context.Context, email string, success bool, ipAddress, userAgent string) (*models.RecordResult, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", models.ErrValidation)
	}

	now := s.now()

	failedBefore := 0
	if !success {
		failures, err := s.failedAttempts(ctx, email, now)
		if err != nil {
			s.logger.Error("failed to fetch login attempts before recording",
				slog.String("email", pkglogger.SanitizedEmail(email)),
				slog.Any("error", err))
		} else {
			failedBefore = len(failures)
		}
	}

	attempt := &models.LoginAttempt{
		Email:       email,
		IPAddress:   optional(ipAddress),
		UserAgent:   optional(userAgent),
		Success:     success,
		AttemptedAt: now,
	}

	insertCtx, cancel := s.ledgerContext(ctx)
	insertErr := s.repo.RecordAttempt(insertCtx, attempt)
	cancel()
	if insertErr != nil {
		s.logger.Error("failed to record login attempt",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", insertErr))
	}

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_attempt",
		Email:     email,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Success:   success,
	})

	if success {
		deleteCtx, cancel := s.ledgerContext(ctx)
		defer cancel()
		if err := s.repo.DeleteFailedAttempts(deleteCtx, email); err != nil {
			s.logger.Error("failed to clear failed login attempts",
				slog.String("email", pkglogger.SanitizedEmail(email)),
				slog.Any("error", err))
		}
		return &models.RecordResult{RemainingAttempts: s.config.MaxLoginAttempts}, nil
	}

	remaining := max(0, s.config.MaxLoginAttempts-failedBefore-1)

	if insertErr == nil && failedBefore+1 == s.config.MaxLoginAttempts {
		s.notifyLockout(ctx, email, now.Add(s.config.LockoutDuration))
	}

	return &models.RecordResult{RemainingAttempts: remaining}, nil
}

// Cleanup removes ledger entries older than the retention horizon
func (s *LockoutService) Cleanup(ctx context.Context) error {
	cutoff := s.now().Add(-s.config.Retention)

	deleted, err := s.repo.DeleteAttemptsBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to cleanup old login attempts", slog.Any("error", err))
		return fmt.Errorf("cleanup login attempts: %w", err)
	}

	if deleted > 0 {
		s.logger.Info("login attempt cleanup completed",
			slog.Int64("rows_deleted", deleted),
			slog.Time("cutoff", cutoff))
	}
	return nil
}

// EvaluateLockout applies the policy to failures (newest first) observed at now.
// Lockout ends lockoutDuration after the most recent failure, however many failures
// remain inside the counting window.
func EvaluateLockout(failures []models.LoginAttempt, now time.Time, config LockoutConfig) models.LockoutStatus {
	failedCount := len(failures)
	if failedCount < config.MaxLoginAttempts {
		return models.LockoutStatus{
			Allowed:           true,
			RemainingAttempts: config.MaxLoginAttempts - failedCount,
		}
	}

	lockoutEnd := failures[0].AttemptedAt.Add(config.LockoutDuration)
	if lockoutEnd.After(now) {
		minutes := ceilMinutes(lockoutEnd.Sub(now))
		return models.LockoutStatus{
			Allowed:           false,
			RemainingAttempts: 0,
			LockoutEnd:        &lockoutEnd,
			Message:           fmt.Sprintf("Too many failed attempts. Please try again after %d minutes.", minutes),
		}
	}

	return models.LockoutStatus{
		Allowed:           true,
		RemainingAttempts: max(0, config.MaxLoginAttempts-failedCount),
	}
}

// NormalizeEmail trims, lowercases and caps an email address at 255 characters
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if utf8.RuneCountInString(email) > maxEmailLength {
		email = string([]rune(email)[:maxEmailLength])
	}
	return email
}

func (s *LockoutService) failedAttempts(ctx context.Context, email string, now time.Time) ([]models.LoginAttempt, error) {
	ctx, cancel := s.ledgerContext(ctx)
	defer cancel()
	return s.repo.GetFailedAttemptsSince(ctx, email, now.Add(-s.config.LoginAttemptsWindow))
}

func (s *LockoutService) ledgerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.LedgerTimeout > 0 {
		return context.WithTimeout(ctx, s.config.LedgerTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *LockoutService) notifyLockout(ctx context.Context, email string, lockoutEnd time.Time) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyLockout(ctx, email, lockoutEnd); err != nil {
		s.logger.Error("failed to send lockout notification",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
	}
}

// ceilMinutes rounds d up to whole minutes
func ceilMinutes(d time.Duration) int {
	return int((d + time.Minute - 1) / time.Minute)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
