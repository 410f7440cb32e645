package clock

import (
	"context"
	"sync"
	"time"
)

// Fake is a manual clock: Sleep advances time instantly.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	slept   time.Duration
	sleeps  int
	onSleep func(now time.Time)
}

// NewFake returns a Fake starting at now.
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	if d > 0 {
		f.now = f.now.Add(d)
		f.slept += d
	}
	f.sleeps++
	now, hook := f.now, f.onSleep
	f.mu.Unlock()
	if hook != nil {
		hook(now)
	}
	return ctx.Err()
}

// Advance moves the clock forward without counting as a sleep.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// OnSleep registers a hook run after every Sleep with the new time.
func (f *Fake) OnSleep(hook func(now time.Time)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onSleep = hook
}

// Slept returns the total duration and number of Sleep calls so far.
func (f *Fake) Slept() (time.Duration, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slept, f.sleeps
}
