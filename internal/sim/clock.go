package sim

import (
	"context"
	"time"
)

// Clock is the wall-clock port of the tick loop.
type Clock interface {
	Now() time.Time
	// SleepUntil blocks until the absolute deadline t or until ctx is done.
	// A deadline in the past returns immediately.
	SleepUntil(ctx context.Context, t time.Time) error
}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) SleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
