// Package capture supervises the external capture tool for one broadcast.
package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/famomatic/ytlive/client"
	"github.com/famomatic/ytlive/internal/clock"
)

const failureBackoff = 5 * time.Second

// StatusSource reports whether a broadcast is still live or upcoming.
type StatusSource interface {
	GetVideoSnippet(ctx context.Context, videoID string) (*client.VideoSnippet, error)
}

// Notifier receives supervisor lifecycle events.
type Notifier interface {
	StreamStarted(ctx context.Context, videoID, fileStem string)
	StreamDeleted(ctx context.Context, videoID string)
	RestartRequested(ctx context.Context, videoID string)
	MarkRecording(ctx context.Context, videoID string)
}

// Config tunes the supervisor.
type Config struct {
	Layout        Layout
	LiveFromStart bool
	WaitForVideo  time.Duration
	// RestartAfter forces a relaunch when LiveFromStart is off.
	RestartAfter time.Duration
}

// Result summarizes a supervised broadcast.
type Result struct {
	Sessions  []*Session
	Ended     bool
	Deleted   bool
	Cancelled bool
}

// Last returns the most recent session, or nil.
func (r Result) Last() *Session {
	if len(r.Sessions) == 0 {
		return nil
	}
	return r.Sessions[len(r.Sessions)-1]
}

// Supervisor relaunches the capture tool until the broadcast ends.
type Supervisor struct {
	status   StatusSource
	runner   Runner
	notifier Notifier
	clock    clock.Clock
	cfg      Config
	logger   *slog.Logger

	// OnSession, when set, is called with every new session before launch.
	OnSession func(*Session)
}

func NewSupervisor(status StatusSource, runner Runner, notifier Notifier, clk clock.Clock, cfg Config, logger *slog.Logger) *Supervisor {
	if clk == nil {
		clk = clock.Real{}
	}
	if cfg.RestartAfter <= 0 {
		cfg.RestartAfter = 5*time.Hour + 59*time.Minute
	}
	if cfg.WaitForVideo <= 0 {
		cfg.WaitForVideo = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		status:   status,
		runner:   runner,
		notifier: notifier,
		clock:    clk,
		cfg:      cfg,
		logger:   logger.With("component", "supervisor"),
	}
}

// Run captures videoID until the platform reports it ended or ctx is done.
// Only a failure to create the first session is returned as an error; later
// failures and every tool exit are followed by failureBackoff and a re-check.
func (s *Supervisor) Run(ctx context.Context, channelID, videoID string) (Result, error) {
	log := s.logger.With("video_id", videoID)
	var res Result
	registered := false

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			res.Cancelled = true
			return res, nil
		}
		ended, deleted := s.liveEnded(ctx, videoID, attempt == 0)
		if ended {
			res.Ended = true
			res.Deleted = deleted
			log.Info("broadcast ended", "deleted", deleted, "attempts", attempt)
			return res, nil
		}

		session, err := NewSession(s.cfg.Layout, channelID, videoID, s.clock.Now())
		if err != nil {
			if len(res.Sessions) == 0 {
				return res, err
			}
			log.Error("capture session could not be created", "attempt", attempt+1, "error", err)
			if err := s.clock.Sleep(ctx, failureBackoff); err != nil {
				res.Cancelled = true
				return res, nil
			}
			continue
		}
		res.Sessions = append(res.Sessions, session)
		if s.OnSession != nil {
			s.OnSession(session)
		}

		s.notifier.StreamStarted(ctx, videoID, session.FileStem)
		if !registered {
			s.notifier.MarkRecording(ctx, videoID)
			registered = true
		}

		log.Info("launching capture", "attempt", attempt+1, "file_stem", session.FileStem, "temp_dir", session.TempDir)
		restarted, err := s.runAttempt(ctx, videoID, session)
		if restarted || ctx.Err() != nil {
			continue
		}
		var exitErr *ExitError
		switch {
		case err == nil:
			log.Info("capture exited, re-checking live status")
		case errors.As(err, &exitErr):
			log.Warn("capture process failed", "exit_code", exitErr.ExitCode, "error", err)
		default:
			log.Error("capture could not run", "error", err)
		}
		if err := s.clock.Sleep(ctx, failureBackoff); err != nil {
			res.Cancelled = true
			return res, nil
		}
	}
}

// runAttempt runs the tool once, arming the restart timer when needed. The
// timer is stopped and joined before it returns; restarted reports whether
// it fired.
func (s *Supervisor) runAttempt(ctx context.Context, videoID string, session *Session) (restarted bool, err error) {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	var (
		wg    sync.WaitGroup
		fired atomic.Bool
	)
	timerCtx, stopTimer := context.WithCancel(runCtx)
	if !s.cfg.LiveFromStart {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.clock.Sleep(timerCtx, s.cfg.RestartAfter); err != nil {
				return
			}
			s.logger.Info("restart interval reached", "video_id", videoID, "after", s.cfg.RestartAfter)
			s.notifier.RestartRequested(ctx, videoID)
			fired.Store(true)
			cancelRun()
		}()
	}

	err = s.runner.Run(runCtx, Invocation{
		VideoID:        videoID,
		OutputTemplate: session.OutputTemplate(),
		WaitForVideo:   s.cfg.WaitForVideo,
		LiveFromStart:  s.cfg.LiveFromStart,
	})
	stopTimer()
	wg.Wait()
	return fired.Load(), err
}

// liveEnded checks the snippet. A missing broadcast is ended and deleted;
// the first check also announces the deletion. Lookup errors count as live.
func (s *Supervisor) liveEnded(ctx context.Context, videoID string, first bool) (ended, deleted bool) {
	snippet, err := s.status.GetVideoSnippet(ctx, videoID)
	if err != nil {
		if errors.Is(err, client.ErrVideoNotFound) {
			if first {
				s.notifier.StreamDeleted(ctx, videoID)
			}
			return true, true
		}
		if ctx.Err() == nil {
			s.logger.Warn("live status check failed", "video_id", videoID, "error", err)
		}
		return false, false
	}
	return snippet.Ended(), false
}
