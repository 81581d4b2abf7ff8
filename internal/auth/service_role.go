package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/projectflow/loginguard/internal/models"
)

// ServiceRoleVerifier issues and validates tokens for administrative callers
type ServiceRoleVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewServiceRoleVerifier creates a verifier for HS256 tokens signed with secret
func NewServiceRoleVerifier(secret string) *ServiceRoleVerifier {
	return &ServiceRoleVerifier{secret: []byte(secret), now: time.Now}
}

// GenerateToken signs a service role token valid for ttl.
// Used by operators and tests; the server itself only verifies.
func (v *ServiceRoleVerifier) GenerateToken(subject string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := &models.ServiceRoleClaims{
		Role: models.ServiceRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign service role token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenString and requires the service role claim
func (v *ServiceRoleVerifier) Verify(tokenString string) (*models.ServiceRoleClaims, error) {
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: service role secret not configured", models.ErrUnauthorized)
	}

	claims := &models.ServiceRoleClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrUnauthorized, err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Role != models.ServiceRole {
		return nil, fmt.Errorf("%w: role %q is not permitted", models.ErrUnauthorized, claims.Role)
	}

	return claims, nil
}
