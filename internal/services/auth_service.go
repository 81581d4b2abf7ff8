package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/projectflow/loginguard/internal/models"
	pkglogger "github.com/projectflow/loginguard/pkg/logger"
)

// AttemptGate is the lockout policy as seen by the authentication flow
type AttemptGate interface {
	Check(ctx context.Context, email string) (*models.LockoutStatus, error)
	Record(ctx context.Context, email string, success bool, ipAddress, userAgent string) (*models.RecordResult, error)
}

// FailureDelay pads rejected sign-ins to a uniform response time
type FailureDelay interface {
	WaitFrom(ctx context.Context, start time.Time)
}

// AuthResult represents the outcome of a gated authentication call
type AuthResult struct {
	Session           *models.AuthSession `json:"session,omitempty"`
	RemainingAttempts int                 `json:"remainingAttempts"`
	LockoutEnd        *time.Time          `json:"lockoutEnd,omitempty"`
	Message           string              `json:"message,omitempty"`
}

// AuthService wraps identity provider calls with lockout checks and attempt recording
type AuthService struct {
	gate             AttemptGate
	provider         IdentityProvider
	resetRedirectURL string
	delay            FailureDelay
	logger           *slog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(gate AttemptGate, provider IdentityProvider, resetRedirectURL string, logger *slog.Logger) *AuthService {
	return &AuthService{
		gate:             gate,
		provider:         provider,
		resetRedirectURL: resetRedirectURL,
		logger:           logger,
	}
}

// SetFailureDelay enables response padding for rejected credentials
func (s *AuthService) SetFailureDelay(delay FailureDelay) {
	s.delay = delay
}

// SignIn checks the lockout state, verifies credentials and records the outcome.
// Only rejected credentials count as a failure; provider outages are not recorded.
func (s *AuthService) SignIn(ctx context.Context, email, password, ipAddress, userAgent string) (*AuthResult, error) {
	start := time.Now()
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", models.ErrValidation)
	}

	status, err := s.gate.Check(ctx, email)
	if err != nil {
		return nil, err
	}
	if !status.Allowed {
		message := status.Message
		if message == "" {
			message = "Too many failed login attempts. Please try again later."
		}
		return &AuthResult{LockoutEnd: status.LockoutEnd, Message: message}, models.ErrAccountLocked
	}

	session, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		if !errors.Is(err, models.ErrInvalidCredentials) {
			s.logger.Error("identity provider sign in failed",
				slog.String("email", pkglogger.SanitizedEmail(email)),
				slog.Any("error", err))
			return nil, err
		}

		recorded, recErr := s.gate.Record(ctx, email, false, ipAddress, userAgent)
		if recErr != nil {
			return nil, recErr
		}
		if s.delay != nil {
			s.delay.WaitFrom(ctx, start)
		}
		return &AuthResult{
			RemainingAttempts: recorded.RemainingAttempts,
			Message:           "Invalid login credentials",
		}, err
	}

	recorded, err := s.gate.Record(ctx, email, true, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	return &AuthResult{Session: session, RemainingAttempts: recorded.RemainingAttempts}, nil
}

// ResetPassword requests a recovery email. It is subject to the same lockout as sign in,
// and a successful request is recorded as a successful attempt.
func (s *AuthService) ResetPassword(ctx context.Context, email, ipAddress, userAgent string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", models.ErrValidation)
	}

	status, err := s.gate.Check(ctx, email)
	if err != nil {
		return nil, err
	}
	if !status.Allowed {
		return &AuthResult{
			LockoutEnd: status.LockoutEnd,
			Message:    "Too many attempts. Please try again later.",
		}, models.ErrAccountLocked
	}

	if err := s.provider.ResetPassword(ctx, email, s.resetRedirectURL); err != nil {
		s.logger.Error("identity provider password reset failed",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return nil, err
	}

	recorded, err := s.gate.Record(ctx, email, true, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	return &AuthResult{RemainingAttempts: recorded.RemainingAttempts}, nil
}

// SignUp registers an account. The display name defaults to the email's local part.
func (s *AuthService) SignUp(ctx context.Context, email, password, name string) (*models.AuthUser, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", models.ErrValidation)
	}

	if name = strings.TrimSpace(name); name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	return s.provider.SignUp(ctx, email, password, name)
}
