package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Invocation describes one capture run.
type Invocation struct {
	VideoID        string
	OutputTemplate string
	// WaitForVideo is passed to --wait-for-video, in whole seconds.
	WaitForVideo  time.Duration
	LiveFromStart bool
}

// Runner launches the external capture tool and blocks until it exits.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

// ExitError is a capture tool run that ended unsuccessfully.
type ExitError struct {
	Tool     string
	ExitCode int
	Err      error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %v", e.Tool, e.ExitCode, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// YTDLP runs yt-dlp.
type YTDLP struct {
	Path string
	// CookiesFile is passed with --cookies when set; otherwise
	// CookiesFromBrowser is used with --cookies-from-browser.
	CookiesFile        string
	CookiesFromBrowser string
	ExtraArgs          []string
	// GracePeriod is how long the tool gets to finalize after an interrupt.
	GracePeriod time.Duration
	Logger      *slog.Logger
}

// NewYTDLP returns a YTDLP runner.
// If path is empty, it looks for "yt-dlp" in PATH.
func NewYTDLP(path string, logger *slog.Logger) *YTDLP {
	if path == "" {
		path = "yt-dlp"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &YTDLP{Path: path, GracePeriod: 30 * time.Second, Logger: logger.With("component", "yt-dlp")}
}

// Available checks if yt-dlp is executable.
func (y *YTDLP) Available() bool {
	_, err := exec.LookPath(y.Path)
	return err == nil
}

// Args builds the yt-dlp argument list for inv.
func (y *YTDLP) Args(inv Invocation) []string {
	args := []string{
		"https://www.youtube.com/watch?v=" + inv.VideoID,
		"-o", inv.OutputTemplate,
		"--wait-for-video", strconv.Itoa(int(inv.WaitForVideo / time.Second)),
		"--mark-watched",
	}
	if inv.LiveFromStart {
		args = append(args, "--live-from-start", "-f", "bestvideo+bestaudio")
	} else {
		args = append(args, "-f", "b")
	}
	switch {
	case y.CookiesFile != "":
		args = append(args, "--cookies", y.CookiesFile)
	case y.CookiesFromBrowser != "":
		args = append(args, "--cookies-from-browser", y.CookiesFromBrowser)
	}
	return append(args, y.ExtraArgs...)
}

// Run starts yt-dlp and streams its output into the logger line by line.
// Cancelling ctx interrupts the process and waits up to GracePeriod.
func (y *YTDLP) Run(ctx context.Context, inv Invocation) error {
	args := y.Args(inv)
	cmd := exec.CommandContext(ctx, y.Path, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = y.GracePeriod

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	log := y.Logger.With("video_id", inv.VideoID)
	log.Info("starting capture", "path", y.Path, "args", strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", y.Path, err)
	}
	log.Info("capture started", "pid", cmd.Process.Pid)

	var g errgroup.Group
	g.Go(func() error { return drainLines(stdout, log, slog.LevelInfo) })
	g.Go(func() error { return drainLines(stderr, log, slog.LevelWarn) })
	drainErr := g.Wait()

	waitErr := cmd.Wait()
	if drainErr != nil && !errors.Is(drainErr, os.ErrClosed) {
		log.Debug("output drain ended", "error", drainErr)
	}
	if waitErr != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		return &ExitError{Tool: "yt-dlp", ExitCode: code, Err: waitErr}
	}
	log.Info("capture finished")
	return nil
}

// drainLines forwards each output line to the logger. Lines that yt-dlp
// prefixes with ERROR are raised to error level.
func drainLines(r io.Reader, log *slog.Logger, level slog.Level) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lvl := level
		if strings.HasPrefix(line, "ERROR") {
			lvl = slog.LevelError
		}
		log.Log(context.Background(), lvl, line)
	}
	return scanner.Err()
}
