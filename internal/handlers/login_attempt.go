package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/projectflow/loginguard/internal/auth"
	"github.com/projectflow/loginguard/internal/models"
	pkghttp "github.com/projectflow/loginguard/pkg/http"
	pkglogger "github.com/projectflow/loginguard/pkg/logger"
)

const (
	ActionCheck  = "check"
	ActionRecord = "record"
)

// LockoutServiceInterface defines the lockout operations exposed over HTTP
type LockoutServiceInterface interface {
	Check(ctx context.Context, email string) (*models.LockoutStatus, error)
	Record(ctx context.Context, email string, success bool, ipAddress, userAgent string) (*models.RecordResult, error)
	Cleanup(ctx context.Context) error
}

// LoginAttemptRequest represents the request body for POST /login-attempt
type LoginAttemptRequest struct {
	Email   string `json:"email"`
	Action  string `json:"action" validate:"required,oneof=check record"`
	Success *bool  `json:"success,omitempty"`
}

// RecordResponse is returned for action=record
type RecordResponse struct {
	Success           bool `json:"success"`
	RemainingAttempts int  `json:"remainingAttempts"`
}

// LoginAttemptHandler serves the login attempt resource
type LoginAttemptHandler struct {
	service  LockoutServiceInterface
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
	audit    *pkglogger.AuditLogger
}

// NewLoginAttemptHandler creates a new LoginAttemptHandler
func NewLoginAttemptHandler(service LockoutServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *LoginAttemptHandler {
	return &LoginAttemptHandler{
		service:  service,
		ipConfig: ipConfig,
		logger:   logger,
		audit:    pkglogger.NewAuditLogger(logger),
	}
}

// Handle dispatches a check or record action
// @Summary Check or record a login attempt
// @Accept json
// @Param request body LoginAttemptRequest true "Login attempt request"
// @Produce json
// @Success 200 {object} models.LockoutStatus
// @Success 200 {object} RecordResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /login-attempt [post]
func (h *LoginAttemptHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req LoginAttemptRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("login attempt request could not be decoded", slog.Any("error", err))
		pkghttp.WriteInternalError(w)
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		pkghttp.WriteBadRequest(w, "Email is required")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid action")
		return
	}

	switch req.Action {
	case ActionCheck:
		h.check(w, r, req.Email)
	case ActionRecord:
		h.record(w, r, req.Email, req.Success != nil && *req.Success)
	}
}

func (h *LoginAttemptHandler) check(w http.ResponseWriter, r *http.Request, email string) {
	status, err := h.service.Check(r.Context(), email)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, status)
}

func (h *LoginAttemptHandler) record(w http.ResponseWriter, r *http.Request, email string, success bool) {
	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	if ipAddress == "unknown" {
		ipAddress = ""
	}
	userAgent := pkghttp.ExtractUserAgent(r)

	result, err := h.service.Record(r.Context(), email, success, ipAddress, userAgent)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, RecordResponse{
		Success:           true,
		RemainingAttempts: result.RemainingAttempts,
	})
}

// Cleanup purges ledger entries past the retention horizon
// @Summary Purge stale login attempts
// @Produce json
// @Success 200 {object} map[string]bool
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /login-attempt [delete]
func (h *LoginAttemptHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	subject := ""
	if claims := auth.ServiceRoleFromContext(r); claims != nil {
		subject = claims.Subject
	}
	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	if err := h.service.Cleanup(r.Context()); err != nil {
		h.logger.Error("cleanup request failed", slog.Any("error", err))
		h.audit.LogAdminAction("login_attempt_cleanup", subject, ipAddress, false)
		pkghttp.WriteError(w, http.StatusInternalServerError, "Cleanup failed")
		return
	}

	h.audit.LogAdminAction("login_attempt_cleanup", subject, ipAddress, true)
	pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *LoginAttemptHandler) writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrValidation) {
		pkghttp.WriteBadRequest(w, "Email is required")
		return
	}

	h.logger.Error("login attempt request failed", slog.Any("error", err))
	pkghttp.WriteInternalError(w)
}
