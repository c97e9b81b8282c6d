package migration

import (
	"context"
	"time"
)

// Clock abstracts time for the polling loops so that convergence can be
// tested without real delays.
type Clock interface {
	Now() time.Time

	// Sleep blocks for d or until the context is cancelled, in which case it
	// returns the context error.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// NewClock returns the wall clock.
func NewClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
