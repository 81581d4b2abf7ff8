package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectflow/loginguard/internal/auth"
	"github.com/projectflow/loginguard/internal/models"
)

const testSecret = "test-service-role-secret-0123456789"

func serveProtected(t *testing.T, verifier *auth.ServiceRoleVerifier, authHeader string) (*httptest.ResponseRecorder, *models.ServiceRoleClaims) {
	t.Helper()

	var seen *models.ServiceRoleClaims
	handler := auth.RequireServiceRole(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.ServiceRoleFromContext(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodDelete, "/login-attempt", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w, seen
}

func TestRequireServiceRole_ValidToken(t *testing.T) {
	verifier := auth.NewServiceRoleVerifier(testSecret)
	token, err := verifier.GenerateToken("cron", time.Minute)
	require.NoError(t, err)

	w, claims := serveProtected(t, verifier, "Bearer "+token)

	assert.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, claims)
	assert.Equal(t, models.ServiceRole, claims.Role)
	assert.Equal(t, "cron", claims.Subject)
}

func TestRequireServiceRole_MissingHeader(t *testing.T) {
	w, claims := serveProtected(t, auth.NewServiceRoleVerifier(testSecret), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
	assert.Nil(t, claims)
}

func TestRequireServiceRole_MalformedHeader(t *testing.T) {
	verifier := auth.NewServiceRoleVerifier(testSecret)
	token, err := verifier.GenerateToken("cron", time.Minute)
	require.NoError(t, err)

	w, _ := serveProtected(t, verifier, "Token "+token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireServiceRole_WrongSecret(t *testing.T) {
	other := auth.NewServiceRoleVerifier("a-different-secret-0123456789abcd")
	token, err := other.GenerateToken("cron", time.Minute)
	require.NoError(t, err)

	w, _ := serveProtected(t, auth.NewServiceRoleVerifier(testSecret), "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireServiceRole_ExpiredToken(t *testing.T) {
	verifier := auth.NewServiceRoleVerifier(testSecret)
	token, err := verifier.GenerateToken("cron", -time.Minute)
	require.NoError(t, err)

	w, _ := serveProtected(t, verifier, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireServiceRole_WrongRole(t *testing.T) {
	claims := &models.ServiceRoleClaims{
		Role: "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	w, _ := serveProtected(t, auth.NewServiceRoleVerifier(testSecret), "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServiceRoleVerifier_RequiresExpiry(t *testing.T) {
	claims := &models.ServiceRoleClaims{Role: models.ServiceRole}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = auth.NewServiceRoleVerifier(testSecret).Verify(token)

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestServiceRoleVerifier_EmptySecretRejectsEverything(t *testing.T) {
	signer := auth.NewServiceRoleVerifier(testSecret)
	token, err := signer.GenerateToken("cron", time.Minute)
	require.NoError(t, err)

	_, err = auth.NewServiceRoleVerifier("").Verify(token)

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestServiceRoleVerifier_RejectsNoneAlgorithm(t *testing.T) {
	claims := &models.ServiceRoleClaims{
		Role: models.ServiceRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = auth.NewServiceRoleVerifier(testSecret).Verify(token)

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
