package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("resource already exists")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	// Login attempt errors
	ErrValidation        = errors.New("validation failed")
	ErrLedgerUnavailable = errors.New("login attempt ledger unavailable")
	ErrAccountLocked     = errors.New("account is temporarily locked")

	// Identity provider errors
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrIdentityProvider   = errors.New("identity provider error")
)
