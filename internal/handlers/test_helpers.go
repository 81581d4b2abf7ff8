package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/projectflow/loginguard/internal/models"
	"github.com/projectflow/loginguard/internal/services"
	pkghttp "github.com/projectflow/loginguard/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks the status and the error message of an error body
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error message mismatch")
}

// MockLockoutService implements LockoutServiceInterface for testing
type MockLockoutService struct {
	CheckFunc   func(ctx context.Context, email string) (*models.LockoutStatus, error)
	RecordFunc  func(ctx context.Context, email string, success bool, ipAddress, userAgent string) (*models.RecordResult, error)
	CleanupFunc func(ctx context.Context) error
}

func (m *MockLockoutService) Check(ctx context.Context, email string) (*models.LockoutStatus, error) {
	if m.CheckFunc == nil {
		return &models.LockoutStatus{Allowed: true, RemainingAttempts: 5}, nil
	}
	return m.CheckFunc(ctx, email)
}

func (m *MockLockoutService) Record(ctx context.Context, email string, success bool, ipAddress, userAgent string) (*models.RecordResult, error) {
	if m.RecordFunc == nil {
		return &models.RecordResult{RemainingAttempts: 4}, nil
	}
	return m.RecordFunc(ctx, email, success, ipAddress, userAgent)
}

func (m *MockLockoutService) Cleanup(ctx context.Context) error {
	if m.CleanupFunc == nil {
		return nil
	}
	return m.CleanupFunc(ctx)
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	SignInFunc        func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResult, error)
	ResetPasswordFunc func(ctx context.Context, email, ipAddress, userAgent string) (*services.AuthResult, error)
	SignUpFunc        func(ctx context.Context, email, password, name string) (*models.AuthUser, error)
}

func (m *MockAuthService) SignIn(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResult, error) {
	if m.SignInFunc == nil {
		return &services.AuthResult{RemainingAttempts: 4}, models.ErrInvalidCredentials
	}
	return m.SignInFunc(ctx, email, password, ipAddress, userAgent)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, email, ipAddress, userAgent string) (*services.AuthResult, error) {
	if m.ResetPasswordFunc == nil {
		return &services.AuthResult{RemainingAttempts: 5}, nil
	}
	return m.ResetPasswordFunc(ctx, email, ipAddress, userAgent)
}

func (m *MockAuthService) SignUp(ctx context.Context, email, password, name string) (*models.AuthUser, error) {
	if m.SignUpFunc == nil {
		return &models.AuthUser{ID: "user-1", Email: email}, nil
	}
	return m.SignUpFunc(ctx, email, password, name)
}

// MockHealthChecker implements HealthChecker for testing
type MockHealthChecker struct {
	Err error
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	return m.Err
}
