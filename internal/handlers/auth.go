package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/projectflow/loginguard/internal/models"
	"github.com/projectflow/loginguard/internal/services"
	pkghttp "github.com/projectflow/loginguard/pkg/http"
)

// AuthServiceInterface defines the gated authentication flow
type AuthServiceInterface interface {
	SignIn(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResult, error)
	ResetPassword(ctx context.Context, email, ipAddress, userAgent string) (*services.AuthResult, error)
	SignUp(ctx context.Context, email, password, name string) (*models.AuthUser, error)
}

// AuthHandler handles the authentication flow endpoints
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
		logger:   logger,
		now:      time.Now,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

// ResetPasswordRequest represents the request body for a password reset
type ResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

// SignUpRequest represents the request body for registration
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"max=100"`
}

// AuthErrorResponse carries the lockout state alongside the error
type AuthErrorResponse struct {
	Error             string     `json:"error"`
	Message           string     `json:"message,omitempty"`
	RemainingAttempts *int       `json:"remainingAttempts,omitempty"`
	LockoutEnd        *time.Time `json:"lockoutEnd,omitempty"`
}

// Login handles email and password sign in
// @Summary User login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} services.AuthResult
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} AuthErrorResponse
// @Failure 429 {object} AuthErrorResponse
// @Failure 502 {object} pkghttp.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := pkghttp.ExtractUserAgent(r)

	result, err := h.service.SignIn(r.Context(), req.Email, req.Password, ipAddress, userAgent)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrAccountLocked):
			h.writeLocked(w, result)
		case errors.Is(err, models.ErrInvalidCredentials):
			remaining := 0
			if result != nil {
				remaining = result.RemainingAttempts
			}
			pkghttp.WriteJSON(w, http.StatusUnauthorized, AuthErrorResponse{
				Error:             "Invalid login credentials",
				RemainingAttempts: &remaining,
			})
		default:
			h.writeFlowError(w, err)
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// ResetPassword requests a password recovery email
// @Summary Request password reset
// @Accept json
// @Param request body ResetPasswordRequest true "Reset request"
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 429 {object} AuthErrorResponse
// @Failure 502 {object} pkghttp.ErrorResponse
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := pkghttp.ExtractUserAgent(r)

	result, err := h.service.ResetPassword(r.Context(), req.Email, ipAddress, userAgent)
	if err != nil {
		if errors.Is(err, models.ErrAccountLocked) {
			h.writeLocked(w, result)
			return
		}
		h.writeFlowError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "If an account exists for this email, a password reset link has been sent.",
	})
}

// SignUp registers a new account with the identity provider
// @Summary User registration
// @Accept json
// @Param request body SignUpRequest true "Sign up request"
// @Produce json
// @Success 201 {object} models.AuthUser
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 502 {object} pkghttp.ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.SignUp(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Registration could not be completed")
			return
		}
		h.writeFlowError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) writeLocked(w http.ResponseWriter, result *services.AuthResult) {
	resp := AuthErrorResponse{Error: "Account temporarily locked"}
	zero := 0
	resp.RemainingAttempts = &zero

	if result != nil {
		resp.Message = result.Message
		resp.LockoutEnd = result.LockoutEnd
		if result.LockoutEnd != nil {
			seconds := math.Ceil(result.LockoutEnd.Sub(h.now()).Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(max(1, int(seconds))))
		}
	}

	pkghttp.WriteJSON(w, http.StatusTooManyRequests, resp)
}

func (h *AuthHandler) writeFlowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		pkghttp.WriteBadRequest(w, "Email is required")
	case errors.Is(err, models.ErrIdentityProvider):
		h.logger.Error("identity provider request failed", slog.Any("error", err))
		pkghttp.WriteError(w, http.StatusBadGateway, "Authentication service unavailable")
	default:
		h.logger.Error("authentication request failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w)
	}
}
