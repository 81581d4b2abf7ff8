package models

import "time"

// LoginAttempt is one row of the login attempt ledger
type LoginAttempt struct {
	ID          string    `db:"id"`
	Email       string    `db:"email"`
	IPAddress   *string   `db:"ip_address"`
	UserAgent   *string   `db:"user_agent"`
	Success     bool      `db:"success"`
	AttemptedAt time.Time `db:"attempted_at"`
}

// LockoutStatus is the result of checking whether an email may attempt a login
type LockoutStatus struct {
	Allowed           bool       `json:"allowed"`
	RemainingAttempts int        `json:"remainingAttempts"`
	LockoutEnd        *time.Time `json:"lockoutEnd,omitempty"`
	Message           string     `json:"message,omitempty"`
}

// RecordResult is returned after an attempt has been written to the ledger
type RecordResult struct {
	RemainingAttempts int `json:"remainingAttempts"`
}
