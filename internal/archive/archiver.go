package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/famomatic/ytlive/internal/capture"
)

// Notifier receives archive events.
type Notifier interface {
	Unarchived(ctx context.Context, videoID string)
	MembersOnly(ctx context.Context, videoID string)
	RemoveByID(ctx context.Context, host string)
	UnmarkRecording(ctx context.Context, videoID string)
}

// MoveError is a single file that could not be relocated.
type MoveError struct {
	Src string
	Dst string
	Err error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("move %s to %s: %v", e.Src, e.Dst, e.Err)
}

func (e *MoveError) Unwrap() error { return e.Err }

// Config controls archiving.
type Config struct {
	UnarchivedRoot string
	// InContainer logs move failures only; otherwise they are also appended
	// to <stem>_err.txt next to the recording. It also enables removeById.
	InContainer bool
	HostID      string
}

// Report lists what Archive did.
type Report struct {
	Outcome     Outcome
	Destination string
	Moved       []string
	Failed      []*MoveError
}

// Archiver moves finished recordings to their destination.
type Archiver struct {
	notifier Notifier
	cfg      Config
	logger   *slog.Logger
}

func NewArchiver(notifier Notifier, cfg Config, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HostID == "" {
		cfg.HostID, _ = os.Hostname()
	}
	return &Archiver{notifier: notifier, cfg: cfg, logger: logger.With("component", "archiver")}
}

// MatchFiles returns regular files in dir named <anything><videoID>.<ext>
// with exactly one extension segment.
func MatchFiles(dir, videoID string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if matchesRecording(e.Name(), videoID) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

func matchesRecording(name, videoID string) bool {
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 || dot == len(name)-1 {
		return false
	}
	return strings.HasSuffix(name[:dot], videoID)
}

// Archive relocates every recording of videoID from the sessions' temp
// directories and emits the matching notifications. Move failures never stop
// sibling moves.
func (a *Archiver) Archive(ctx context.Context, outcome Outcome, videoID string, sessions []*capture.Session) Report {
	log := a.logger.With("video_id", videoID, "outcome", outcome.String())
	report := Report{Outcome: outcome}

	for _, session := range distinctTempDirs(sessions) {
		dest := a.destination(outcome, session)
		report.Destination = dest
		if outcome == Normal && samePath(dest, session.TempDir) {
			log.Info("output directory equals temp directory, leaving files in place", "dir", dest)
			continue
		}
		files, err := MatchFiles(session.TempDir, videoID)
		if err != nil {
			log.Error("list recordings failed", "dir", session.TempDir, "error", err)
			continue
		}
		if len(files) > 0 {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				log.Error("create destination failed", "dir", dest, "error", err)
				continue
			}
		}
		for _, src := range files {
			dst := filepath.Join(dest, filepath.Base(src))
			if err := moveFile(src, dst); err != nil {
				moveErr := &MoveError{Src: src, Dst: dst, Err: err}
				report.Failed = append(report.Failed, moveErr)
				a.recordFailure(log, session, moveErr)
				continue
			}
			log.Info("moved recording", "src", src, "dst", dst)
			report.Moved = append(report.Moved, dst)
		}
	}

	if len(report.Moved) > 0 {
		switch outcome {
		case Deleted:
			a.notifier.Unarchived(ctx, videoID)
		case MembersOnly:
			a.notifier.MembersOnly(ctx, videoID)
		case Normal:
			if a.cfg.InContainer {
				a.notifier.RemoveByID(ctx, a.cfg.HostID)
			}
		}
	}
	a.notifier.UnmarkRecording(ctx, videoID)
	return report
}

func (a *Archiver) destination(outcome Outcome, s *capture.Session) string {
	if outcome == Normal {
		return s.OutputDir
	}
	return a.cfg.UnarchivedRoot
}

func (a *Archiver) recordFailure(log *slog.Logger, s *capture.Session, moveErr *MoveError) {
	log.Error("move recording failed", "src", moveErr.Src, "dst", moveErr.Dst, "error", moveErr.Err)
	if a.cfg.InContainer {
		return
	}
	path := filepath.Join(s.TempDir, s.FileStem+"_err.txt")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Error("write error file failed", "path", path, "error", err)
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s %v\n", time.Now().Format(time.RFC3339), moveErr)
}

// distinctTempDirs keeps the last session per temp directory so each
// directory is scanned once.
func distinctTempDirs(sessions []*capture.Session) []*capture.Session {
	index := make(map[string]int)
	var out []*capture.Session
	for _, s := range sessions {
		if s == nil {
			continue
		}
		if i, ok := index[s.TempDir]; ok {
			out[i] = s
			continue
		}
		index[s.TempDir] = len(out)
		out = append(out, s)
	}
	return out
}

func samePath(a, b string) bool {
	ca, errA := filepath.Abs(a)
	cb, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return ca == cb
}

// moveFile renames src to dst, copying across filesystems when needed.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
