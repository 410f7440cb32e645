// Package clock provides the interruptible waits used by every polling loop.
package clock

import (
	"context"
	"time"
)

// Clock reads the current time and sleeps in a cancellable way.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// Real is the wall clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Countdown sleeps for total in steps of tick, calling onTick with the time
// still left after each step. Cancellation is observed within one tick.
func Countdown(ctx context.Context, clk Clock, total, tick time.Duration, onTick func(remaining time.Duration)) error {
	if tick <= 0 {
		tick = time.Second
	}
	for remaining := total; remaining > 0; {
		step := tick
		if remaining < step {
			step = remaining
		}
		if err := clk.Sleep(ctx, step); err != nil {
			return err
		}
		remaining -= step
		if onTick != nil {
			onTick(remaining)
		}
	}
	return ctx.Err()
}
