package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	stemTimeLayout = "20060102_150405"
	dayLayout      = "20060102"
)

// Layout holds the root directories recordings move through.
type Layout struct {
	TempRoot       string
	OutputRoot     string
	UnarchivedRoot string
}

// Session is one capture attempt.
type Session struct {
	ID        string
	ChannelID string
	VideoID   string
	FileStem  string
	TempDir   string
	OutputDir string
	StartedAt time.Time
}

// FileStem returns youtube_<channel>_<yyyyMMdd_HHmmss>_<video>.
func FileStem(channelID, videoID string, at time.Time) string {
	return fmt.Sprintf("youtube_%s_%s_%s", channelID, at.Format(stemTimeLayout), videoID)
}

// NewSession creates the dated temp and output directories for an attempt.
func NewSession(layout Layout, channelID, videoID string, now time.Time) (*Session, error) {
	day := now.Format(dayLayout)
	s := &Session{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		VideoID:   videoID,
		FileStem:  FileStem(channelID, videoID, now),
		TempDir:   filepath.Join(layout.TempRoot, day),
		OutputDir: filepath.Join(layout.OutputRoot, day),
		StartedAt: now,
	}
	for _, dir := range []string{s.TempDir, s.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return s, nil
}

// OutputTemplate is the capture tool output path with its extension placeholder.
func (s *Session) OutputTemplate() string {
	return filepath.Join(s.TempDir, s.FileStem+".%(ext)s")
}
