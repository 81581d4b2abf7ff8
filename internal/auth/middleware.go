package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/projectflow/loginguard/internal/models"
	pkghttp "github.com/projectflow/loginguard/pkg/http"
)

type contextKey string

// ServiceRoleContextKey holds the verified claims for administrative requests
const ServiceRoleContextKey contextKey = "service_role"

// RequireServiceRole rejects requests without a valid service role bearer token
func RequireServiceRole(verifier *ServiceRoleVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				pkghttp.WriteUnauthorized(w, "Unauthorized")
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				pkghttp.WriteUnauthorized(w, "Unauthorized")
				return
			}

			claims, err := verifier.Verify(tokenString)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), ServiceRoleContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ServiceRoleFromContext returns the claims set by RequireServiceRole
func ServiceRoleFromContext(r *http.Request) *models.ServiceRoleClaims {
	claims, ok := r.Context().Value(ServiceRoleContextKey).(*models.ServiceRoleClaims)
	if !ok {
		return nil
	}
	return claims
}
