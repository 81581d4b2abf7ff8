package auth

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig controls the padding applied to rejected sign-in attempts
type TimingConfig struct {
	BaseDelay   time.Duration
	RandomDelay time.Duration // Upper bound of the random jitter added to BaseDelay
}

// TimingDelay pads rejected sign-ins so a response time does not reveal why it failed
type TimingDelay struct {
	config TimingConfig
}

// NewTimingDelay creates a new TimingDelay
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// WaitFrom blocks until at least the target delay has elapsed since start.
// It returns early if ctx is done.
func (td *TimingDelay) WaitFrom(ctx context.Context, start time.Time) {
	remaining := td.target() - time.Since(start)
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (td *TimingDelay) target() time.Duration {
	return td.config.BaseDelay + cryptoJitter(td.config.RandomDelay)
}

// cryptoJitter returns a random duration in [0, limit)
func cryptoJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return time.Duration(binary.BigEndian.Uint64(buf[:]) % uint64(limit))
}
