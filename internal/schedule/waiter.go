// Package schedule waits for a scheduled broadcast to become recordable.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/famomatic/ytlive/client"
	"github.com/famomatic/ytlive/internal/clock"
)

// Outcome is the result of a wait.
type Outcome int

const (
	// Ready means capture should start now.
	Ready Outcome = iota
	// Deleted means the platform no longer returns the broadcast.
	Deleted
	// ChatRoomOnly means the id is a placeholder or an already finished broadcast.
	ChatRoomOnly
	// TimeChanged means the scheduled start moved during the wait.
	TimeChanged
	// Cancelled means shutdown was requested.
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Ready:
		return "ready"
	case Deleted:
		return "deleted"
	case ChatRoomOnly:
		return "chat_room_only"
	case TimeChanged:
		return "time_changed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// DetailsSource fetches broadcast schedule details.
type DetailsSource interface {
	GetLiveStreamingDetails(ctx context.Context, videoID string) (*client.LiveStreamingDetails, error)
}

// Config tunes the waiter. Zero values use defaults.
type Config struct {
	// Lead is how close to the start waiting stops.
	Lead time.Duration
	// RecheckLead is how far away a re-fetched start must be to wait again.
	RecheckLead  time.Duration
	Tick         time.Duration
	RefetchEvery int
	RetryBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.Lead <= 0 {
		c.Lead = time.Minute
	}
	if c.RecheckLead <= 0 {
		c.RecheckLead = 2 * time.Minute
	}
	if c.Tick <= 0 {
		c.Tick = time.Second
	}
	if c.RefetchEvery <= 0 {
		c.RefetchEvery = 900
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 5 * time.Second
	}
	return c
}

// Waiter runs the pre-start state machine for one broadcast at a time.
type Waiter struct {
	source DetailsSource
	clock  clock.Clock
	cfg    Config
	logger *slog.Logger
}

func NewWaiter(source DetailsSource, clk clock.Clock, cfg Config, logger *slog.Logger) *Waiter {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Waiter{source: source, clock: clk, cfg: cfg.withDefaults(), logger: logger.With("component", "schedule")}
}

// Wait blocks until videoID should be captured or another outcome applies.
// The only error returned is a non-transient fetch failure.
func (w *Waiter) Wait(ctx context.Context, videoID string) (Outcome, error) {
	log := w.logger.With("video_id", videoID)

	details, outcome, err := w.fetch(ctx, videoID)
	if details == nil {
		return outcome, err
	}
	if details.ActualEnd != nil {
		log.Info("broadcast already ended")
		return ChatRoomOnly, nil
	}
	if details.ScheduledStart == nil && details.ActualStart == nil {
		log.Info("no start time, treating as chat room")
		return ChatRoomOnly, nil
	}

	scheduled := details.ScheduledStart
	start := effectiveStart(details)
	if start.Sub(w.clock.Now()) <= w.cfg.Lead {
		return Ready, nil
	}

	for {
		log.Info("waiting for scheduled start", "start", start.Local(), "in", start.Sub(w.clock.Now()).Round(time.Second))
		ticks := 0
		for start.Sub(w.clock.Now()) > w.cfg.Lead {
			if err := w.clock.Sleep(ctx, w.cfg.Tick); err != nil {
				log.Info("wait cancelled")
				return Cancelled, nil
			}
			ticks++
			log.Debug("waiting", "remaining", start.Sub(w.clock.Now()).Round(time.Second))

			if ticks%w.cfg.RefetchEvery != 0 {
				continue
			}
			fresh, outcome, err := w.fetch(ctx, videoID)
			if fresh == nil {
				return outcome, err
			}
			if !sameTime(fresh.ScheduledStart, scheduled) {
				log.Info("scheduled start changed", "old", formatTime(scheduled), "new", formatTime(fresh.ScheduledStart))
				return TimeChanged, nil
			}
			log.Info("scheduled start unchanged", "start", start.Local())
		}

		fresh, outcome, err := w.fetch(ctx, videoID)
		if fresh == nil {
			return outcome, err
		}
		if fresh.ScheduledStart != nil && fresh.ScheduledStart.Sub(w.clock.Now()) > w.cfg.RecheckLead {
			log.Info("start moved later, waiting again", "start", fresh.ScheduledStart.Local())
			scheduled = fresh.ScheduledStart
			start = *fresh.ScheduledStart
			continue
		}
		return Ready, nil
	}
}

// fetch retries transient failures. A nil details result comes with the
// outcome to return: Deleted, Cancelled, or an error.
func (w *Waiter) fetch(ctx context.Context, videoID string) (*client.LiveStreamingDetails, Outcome, error) {
	for {
		details, err := w.source.GetLiveStreamingDetails(ctx, videoID)
		switch {
		case err == nil:
			return details, Ready, nil
		case ctx.Err() != nil:
			return nil, Cancelled, nil
		case errors.Is(err, client.ErrVideoNotFound):
			w.logger.Info("broadcast deleted", "video_id", videoID)
			return nil, Deleted, nil
		case !client.IsTransient(err):
			return nil, Cancelled, fmt.Errorf("fetch schedule for %s: %w", videoID, err)
		}
		w.logger.Warn("schedule fetch failed", "video_id", videoID, "error", err, "retry_in", w.cfg.RetryBackoff)
		if err := w.clock.Sleep(ctx, w.cfg.RetryBackoff); err != nil {
			return nil, Cancelled, nil
		}
	}
}

func effectiveStart(d *client.LiveStreamingDetails) time.Time {
	if d.ScheduledStart != nil {
		return *d.ScheduledStart
	}
	return *d.ActualStart
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "none"
	}
	return t.Local().Format(time.RFC3339)
}
