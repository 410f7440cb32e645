// Package detector polls a channel's live page for the next broadcast id.
package detector

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/famomatic/ytlive/client"
	"github.com/famomatic/ytlive/internal/clock"
)

const (
	candidateMarker = `liveStreamabilityRenderer":{"videoId":"`
	// noStreamSentinel appears where the id would be when the page has no broadcast.
	noStreamSentinel = "10px;font"
	videoIDLength    = 11
)

// PageSource fetches the channel live page.
type PageSource interface {
	FetchLivePage(ctx context.Context, channelID string) (string, error)
}

// Candidate is a broadcast id seen on the live page.
type Candidate struct {
	VideoID      string
	DiscoveredAt time.Time
}

// Config tunes polling. Zero values use defaults.
type Config struct {
	// Interval is how long to wait when no candidate is present.
	Interval time.Duration
	// ErrorBackoff is the wait after a failed fetch.
	ErrorBackoff time.Duration
	Tick         time.Duration
}

// Detector finds the next candidate broadcast for a channel.
type Detector struct {
	source PageSource
	clock  clock.Clock
	cfg    Config
	logger *slog.Logger
}

func New(source PageSource, clk clock.Clock, cfg Config, logger *slog.Logger) *Detector {
	if clk == nil {
		clk = clock.Real{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = 5 * time.Second
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{source: source, clock: clk, cfg: cfg, logger: logger.With("component", "detector")}
}

// ExtractCandidate returns the id following the streamability marker, or
// false when the page carries no usable id.
func ExtractCandidate(page string) (string, bool) {
	idx := strings.Index(page, candidateMarker)
	if idx < 0 {
		return "", false
	}
	rest := page[idx+len(candidateMarker):]
	if len(rest) < videoIDLength {
		return "", false
	}
	id := rest[:videoIDLength]
	if strings.Contains(id, noStreamSentinel) || !client.IsVideoID(id) {
		return "", false
	}
	return id, true
}

// Next blocks until the live page shows a candidate other than placeholder.
// It fails only on ErrChannelNotFound or cancellation; other errors are retried.
func (d *Detector) Next(ctx context.Context, channelID, placeholder string) (Candidate, error) {
	log := d.logger.With("channel_id", channelID)
	for {
		page, err := d.source.FetchLivePage(ctx, channelID)
		if err != nil {
			if ctx.Err() != nil {
				return Candidate{}, ctx.Err()
			}
			if errors.Is(err, client.ErrChannelNotFound) {
				return Candidate{}, err
			}
			log.Warn("live page fetch failed", "error", err, "retry_in", d.cfg.ErrorBackoff)
			if err := d.clock.Sleep(ctx, d.cfg.ErrorBackoff); err != nil {
				return Candidate{}, err
			}
			continue
		}

		id, ok := ExtractCandidate(page)
		if ok && id != placeholder {
			log.Info("found candidate", "video_id", id)
			return Candidate{VideoID: id, DiscoveredAt: d.clock.Now()}, nil
		}

		log.Info("no upcoming stream", "next_check_in", d.cfg.Interval)
		err = clock.Countdown(ctx, d.clock, d.cfg.Interval, d.cfg.Tick, func(remaining time.Duration) {
			log.Debug("waiting for next check", "remaining", remaining)
		})
		if err != nil {
			return Candidate{}, err
		}
	}
}
