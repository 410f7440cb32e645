// Package status tracks the recorder's lifecycle phase and serves it over HTTP.
package status

import (
	"sync"
	"time"

	"github.com/famomatic/ytlive/internal/capture"
	"github.com/famomatic/ytlive/internal/clock"
)

// Phase is the lifecycle step the recorder is in.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseResolving Phase = "resolving"
	PhaseDetecting Phase = "detecting"
	PhaseWaiting   Phase = "waiting"
	PhaseRecording Phase = "recording"
	PhaseArchiving Phase = "archiving"
	PhaseStopped   Phase = "stopped"
)

// SessionInfo is the public view of a capture session.
type SessionInfo struct {
	ID        string    `json:"id"`
	FileStem  string    `json:"file_stem"`
	TempDir   string    `json:"temp_dir"`
	StartedAt time.Time `json:"started_at"`
}

// Snapshot is a point-in-time copy of the tracker state.
type Snapshot struct {
	ChannelID   string       `json:"channel_id,omitempty"`
	ChannelName string       `json:"channel_name,omitempty"`
	Phase       Phase        `json:"phase"`
	VideoID     string       `json:"video_id,omitempty"`
	Session     *SessionInfo `json:"session,omitempty"`
	Recorded    int          `json:"recorded"`
	LastOutcome string       `json:"last_outcome,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu    sync.RWMutex
	clock clock.Clock
	snap  Snapshot
}

func NewTracker(clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Tracker{clock: clk, snap: Snapshot{Phase: PhaseIdle, UpdatedAt: clk.Now()}}
}

func (t *Tracker) SetChannel(id, name string) {
	t.update(func(s *Snapshot) {
		s.ChannelID = id
		s.ChannelName = name
	})
}

// SetPhase moves to phase. An empty videoID keeps the current one unless the
// phase is detecting, which clears it.
func (t *Tracker) SetPhase(phase Phase, videoID string) {
	t.update(func(s *Snapshot) {
		s.Phase = phase
		switch {
		case videoID != "":
			s.VideoID = videoID
		case phase == PhaseDetecting:
			s.VideoID = ""
			s.Session = nil
		}
	})
}

func (t *Tracker) SetSession(session *capture.Session) {
	if session == nil {
		return
	}
	t.update(func(s *Snapshot) {
		s.Phase = PhaseRecording
		s.VideoID = session.VideoID
		s.Session = &SessionInfo{
			ID:        session.ID,
			FileStem:  session.FileStem,
			TempDir:   session.TempDir,
			StartedAt: session.StartedAt,
		}
	})
}

// Finished records the outcome of an archived broadcast.
func (t *Tracker) Finished(outcome string) {
	t.update(func(s *Snapshot) {
		s.Recorded++
		s.LastOutcome = outcome
		s.Session = nil
	})
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap := t.snap
	if snap.Session != nil {
		cp := *snap.Session
		snap.Session = &cp
	}
	return snap
}

func (t *Tracker) update(fn func(*Snapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.snap)
	t.snap.UpdatedAt = t.clock.Now()
}
