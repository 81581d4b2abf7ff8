package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	pkglogger "github.com/projectflow/loginguard/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"alice@example.com", "a****@*******.com"},
		{"a@b.com", "a@*.com"},
		{"not-an-email", "[invalid-email]"},
		{"bob@localhost", "b**@localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, pkglogger.SanitizedEmail(tt.email))
		})
	}
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, pkglogger.SanitizeQueryString("email=a@b.com"))
	assert.True(t, pkglogger.SanitizeQueryString("ACCESS_TOKEN=x"))
	assert.False(t, pkglogger.SanitizeQueryString("page=2&sort=asc"))
	assert.False(t, pkglogger.SanitizeQueryString(""))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, pkglogger.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, pkglogger.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, pkglogger.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, pkglogger.ParseLevel("verbose"))
}

func TestAuditLogger_LogAuthAttemptMasksEmail(t *testing.T) {
	var buf bytes.Buffer
	audit := pkglogger.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_attempt",
		Email:     "alice@example.com",
		IPAddress: "203.0.113.9",
		Success:   false,
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "a****@*******.com", entry["email"])
	assert.Equal(t, "203.0.113.9", entry["ip_address"])
	assert.NotContains(t, buf.String(), "alice@example.com")
}

func TestAuditLogger_LogAdminAction(t *testing.T) {
	var buf bytes.Buffer
	audit := pkglogger.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	audit.LogAdminAction("login_attempt_cleanup", "service_role", "10.0.0.1", true)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "admin", entry["audit_type"])
	assert.Equal(t, "service_role", entry["subject"])
}
