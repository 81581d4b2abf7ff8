package handlers_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/projectflow/loginguard/internal/models"
)

// memoryLedger is a minimal in-memory login attempt store
type memoryLedger struct {
	mu       sync.Mutex
	attempts []models.LoginAttempt
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{}
}

func (l *memoryLedger) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = append(l.attempts, *attempt)
	return nil
}

func (l *memoryLedger) GetFailedAttemptsSince(ctx context.Context, email string, since time.Time) ([]models.LoginAttempt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []models.LoginAttempt
	for _, a := range l.attempts {
		if a.Email == email && !a.Success && !a.AttemptedAt.Before(since) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptedAt.After(out[j].AttemptedAt) })
	return out, nil
}

func (l *memoryLedger) DeleteFailedAttempts(ctx context.Context, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.attempts[:0]
	for _, a := range l.attempts {
		if a.Email != email || a.Success {
			kept = append(kept, a)
		}
	}
	l.attempts = kept
	return nil
}

func (l *memoryLedger) DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var deleted int64
	kept := l.attempts[:0]
	for _, a := range l.attempts {
		if a.AttemptedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	l.attempts = kept
	return deleted, nil
}
