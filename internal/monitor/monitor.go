// Package monitor runs the recording lifecycle for one channel:
// detect, wait, capture, archive and, in loop mode, start over.
package monitor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/famomatic/ytlive/client"
	"github.com/famomatic/ytlive/internal/archive"
	"github.com/famomatic/ytlive/internal/capture"
	"github.com/famomatic/ytlive/internal/channel"
	"github.com/famomatic/ytlive/internal/detector"
	"github.com/famomatic/ytlive/internal/schedule"
	"github.com/famomatic/ytlive/internal/status"
)

// Result is how a run finished.
type Result int

const (
	// None means the run was cancelled before anything was recorded.
	None Result = iota
	// Once means a single broadcast was handled.
	Once
	// Loop means loop mode recorded at least one broadcast before cancellation.
	Loop
)

func (r Result) String() string {
	switch r {
	case Once:
		return "once"
	case Loop:
		return "loop"
	default:
		return "none"
	}
}

type (
	Resolver interface {
		Resolve(ctx context.Context, ref string) (channel.Channel, error)
	}
	Videos interface {
		GetVideoSnippet(ctx context.Context, videoID string) (*client.VideoSnippet, error)
	}
	Detector interface {
		Next(ctx context.Context, channelID, placeholder string) (detector.Candidate, error)
	}
	Waiter interface {
		Wait(ctx context.Context, videoID string) (schedule.Outcome, error)
	}
	Supervisor interface {
		Run(ctx context.Context, channelID, videoID string) (capture.Result, error)
	}
	Classifier interface {
		Classify(ctx context.Context, videoID string) archive.Outcome
	}
	Archiver interface {
		Archive(ctx context.Context, outcome archive.Outcome, videoID string, sessions []*capture.Session) archive.Report
	}
	Events interface {
		StreamDeleted(ctx context.Context, videoID string)
	}
)

// Deps are the lifecycle components. Tracker may be nil.
type Deps struct {
	Resolver   Resolver
	Videos     Videos
	Detector   Detector
	Waiter     Waiter
	Supervisor Supervisor
	Classifier Classifier
	Archiver   Archiver
	Events     Events
	Tracker    *status.Tracker
}

type Config struct {
	Loop bool
}

// Monitor owns the lifecycle loop. It is not safe for concurrent Run calls.
type Monitor struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger
}

func New(deps Deps, cfg Config, logger *slog.Logger) *Monitor {
	if deps.Tracker == nil {
		deps.Tracker = status.NewTracker(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{deps: deps, cfg: cfg, logger: logger.With("component", "monitor")}
}

// Target is what a run records.
type Target struct {
	Channel channel.Channel
	// VideoID is set when a specific broadcast was requested.
	VideoID string
}

// ResolveTarget accepts a video id, a watch URL or a channel reference.
func (m *Monitor) ResolveTarget(ctx context.Context, ref string) (Target, error) {
	m.deps.Tracker.SetPhase(status.PhaseResolving, "")
	if videoID, err := client.ExtractVideoID(ref); err == nil {
		snippet, err := m.deps.Videos.GetVideoSnippet(ctx, videoID)
		if err != nil {
			return Target{}, fmt.Errorf("look up video %s: %w", videoID, err)
		}
		if snippet.ChannelID == "" {
			return Target{}, fmt.Errorf("%w: %s has no channel", client.ErrVideoNotFound, videoID)
		}
		return Target{
			Channel: channel.Channel{ID: snippet.ChannelID, DisplayName: snippet.ChannelTitle},
			VideoID: videoID,
		}, nil
	}

	ch, err := m.deps.Resolver.Resolve(ctx, ref)
	if err != nil {
		return Target{}, err
	}
	if ch.Keyword {
		return Target{}, fmt.Errorf("%w: group keyword %q cannot be recorded", channel.ErrInvalidReference, ch.ID)
	}
	return Target{Channel: ch}, nil
}

// Run resolves ref and records until done. Cancellation is not an error.
func (m *Monitor) Run(ctx context.Context, ref string) (Result, error) {
	target, err := m.ResolveTarget(ctx, ref)
	if err != nil {
		return None, err
	}
	return m.RunTarget(ctx, target)
}

// RunTarget records an already resolved target.
func (m *Monitor) RunTarget(ctx context.Context, target Target) (Result, error) {
	ch := target.Channel
	log := m.logger.With("channel_id", ch.ID)
	tracker := m.deps.Tracker
	tracker.SetChannel(ch.ID, ch.DisplayName)
	defer tracker.SetPhase(status.PhaseStopped, "")

	if target.VideoID != "" {
		log.Info("recording a single broadcast", "channel", ch.DisplayName, "video_id", target.VideoID, "loop", m.cfg.Loop)
	} else {
		log.Info("monitoring channel", "channel", ch.DisplayName, "loop", m.cfg.Loop)
	}

	var (
		videoID     = target.VideoID
		single      = videoID != ""
		placeholder string
		recorded    int
	)
	stopped := func() Result {
		if m.cfg.Loop && recorded > 0 {
			return Loop
		}
		return None
	}
	// next reports whether the run continues with detection.
	next := func() bool {
		videoID = ""
		if single && !m.cfg.Loop {
			return false
		}
		single = false
		return true
	}

	for {
		if ctx.Err() != nil {
			return stopped(), nil
		}

		if videoID == "" {
			tracker.SetPhase(status.PhaseDetecting, "")
			cand, err := m.deps.Detector.Next(ctx, ch.ID, placeholder)
			if err != nil {
				if ctx.Err() != nil {
					return stopped(), nil
				}
				return stopped(), err
			}
			videoID = cand.VideoID
		}
		vlog := log.With("video_id", videoID)
		vlog.Info("candidate broadcast found")

		tracker.SetPhase(status.PhaseWaiting, videoID)
		outcome, err := m.deps.Waiter.Wait(ctx, videoID)
		if err != nil {
			if ctx.Err() != nil {
				return stopped(), nil
			}
			return stopped(), err
		}
		switch outcome {
		case schedule.Cancelled:
			return stopped(), nil
		case schedule.TimeChanged:
			vlog.Info("schedule changed, waiting again")
			continue
		case schedule.Deleted:
			vlog.Info("broadcast deleted before start")
			m.deps.Events.StreamDeleted(ctx, videoID)
			if !next() {
				return Once, nil
			}
			continue
		case schedule.ChatRoomOnly:
			vlog.Info("candidate is not a real broadcast, ignoring it")
			placeholder = videoID
			if !next() {
				return Once, nil
			}
			continue
		}

		tracker.SetPhase(status.PhaseRecording, videoID)
		res, err := m.deps.Supervisor.Run(ctx, ch.ID, videoID)
		if len(res.Sessions) > 0 {
			recorded++
			m.archive(ctx, videoID, res)
		}
		if err != nil {
			return stopped(), fmt.Errorf("capture %s: %w", videoID, err)
		}

		if res.Cancelled || ctx.Err() != nil {
			return stopped(), nil
		}
		if !m.cfg.Loop {
			return Once, nil
		}
		next()
	}
}

// archive classifies and moves a finished recording. A cancelled capture is
// archived as normal without classification and outlives ctx.
func (m *Monitor) archive(ctx context.Context, videoID string, res capture.Result) {
	m.deps.Tracker.SetPhase(status.PhaseArchiving, videoID)

	var outcome archive.Outcome
	switch {
	case res.Cancelled || ctx.Err() != nil:
		ctx = context.WithoutCancel(ctx)
		outcome = archive.Normal
	case res.Deleted:
		outcome = archive.Deleted
	default:
		outcome = m.deps.Classifier.Classify(ctx, videoID)
	}

	report := m.deps.Archiver.Archive(ctx, outcome, videoID, res.Sessions)
	m.logger.Info("broadcast archived",
		"video_id", videoID,
		"outcome", outcome.String(),
		"moved", len(report.Moved),
		"failed", len(report.Failed),
	)
	m.deps.Tracker.Finished(outcome.String())
}
