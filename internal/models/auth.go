package models

import "github.com/golang-jwt/jwt/v5"

// AuthUser is the identity provider's view of an account
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AuthSession is returned by the identity provider after a successful sign in
type AuthSession struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	RefreshToken string    `json:"refresh_token"`
	User         *AuthUser `json:"user,omitempty"`
}

// ServiceRoleClaims are carried by administrative bearer tokens
type ServiceRoleClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ServiceRole is the role claim required for administrative routes
const ServiceRole = "service_role"
