package archive

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/famomatic/ytlive/internal/capture"
)

const testVideo = "abcdefghijk"

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) add(ev string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) Unarchived(_ context.Context, id string)      { n.add("unarchived:" + id) }
func (n *recordingNotifier) MembersOnly(_ context.Context, id string)     { n.add("memberonly:" + id) }
func (n *recordingNotifier) RemoveByID(_ context.Context, host string)    { n.add("remove:" + host) }
func (n *recordingNotifier) UnmarkRecording(_ context.Context, id string) { n.add("unmark:" + id) }

func newTestSession(t *testing.T, root string) *capture.Session {
	t.Helper()
	layout := capture.Layout{
		TempRoot:       filepath.Join(root, "temp"),
		OutputRoot:     filepath.Join(root, "out"),
		UnarchivedRoot: filepath.Join(root, "unarchived"),
	}
	s, err := capture.NewSession(layout, "UCchannel", testVideo, time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestMatchFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"youtube_UC_20240501_200000_" + testVideo + ".mp4",
		"youtube_UC_20240501_200000_" + testVideo + ".part",
		"youtube_UC_20240501_200000_" + testVideo + ".f140.mp4",
		"youtube_UC_20240501_200000_" + testVideo + ".",
		"youtube_UC_20240501_200000_zzzzzzzzzzz.mp4",
		testVideo + "_err.txt",
	} {
		writeFile(t, filepath.Join(dir, name))
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"+testVideo+".d"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := MatchFiles(dir, testVideo)
	if err != nil {
		t.Fatalf("MatchFiles: %v", err)
	}
	var names []string
	for _, p := range got {
		names = append(names, filepath.Base(p))
	}
	sort.Strings(names)
	want := []string{
		"youtube_UC_20240501_200000_" + testVideo + ".mp4",
		"youtube_UC_20240501_200000_" + testVideo + ".part",
	}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("MatchFiles() = %v, want %v", names, want)
	}
}

func TestArchiveNormalMovesToOutput(t *testing.T) {
	root := t.TempDir()
	s := newTestSession(t, root)
	writeFile(t, filepath.Join(s.TempDir, s.FileStem+".mp4"))
	writeFile(t, filepath.Join(s.TempDir, "unrelated.mp4"))

	n := &recordingNotifier{}
	a := NewArchiver(n, Config{UnarchivedRoot: filepath.Join(root, "unarchived"), HostID: "host-1"}, nil)
	report := a.Archive(context.Background(), Normal, testVideo, []*capture.Session{s})

	if len(report.Moved) != 1 || len(report.Failed) != 0 {
		t.Fatalf("report = %+v", report)
	}
	if _, err := os.Stat(filepath.Join(s.OutputDir, s.FileStem+".mp4")); err != nil {
		t.Fatalf("recording not in output dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.TempDir, "unrelated.mp4")); err != nil {
		t.Fatalf("unrelated file moved: %v", err)
	}
	if strings.Join(n.events, ",") != "unmark:"+testVideo {
		t.Fatalf("events = %v", n.events)
	}
}

func TestArchiveNormalInContainerRequestsRemoval(t *testing.T) {
	root := t.TempDir()
	s := newTestSession(t, root)
	writeFile(t, filepath.Join(s.TempDir, s.FileStem+".mkv"))

	n := &recordingNotifier{}
	a := NewArchiver(n, Config{InContainer: true, HostID: "host-1"}, nil)
	a.Archive(context.Background(), Normal, testVideo, []*capture.Session{s})

	want := "remove:host-1,unmark:" + testVideo
	if strings.Join(n.events, ",") != want {
		t.Fatalf("events = %v, want %s", n.events, want)
	}
}

func TestArchiveDeletedAndMembersOnly(t *testing.T) {
	for _, tt := range []struct {
		outcome Outcome
		event   string
	}{
		{Deleted, "unarchived:" + testVideo},
		{MembersOnly, "memberonly:" + testVideo},
	} {
		t.Run(tt.outcome.String(), func(t *testing.T) {
			root := t.TempDir()
			s := newTestSession(t, root)
			writeFile(t, filepath.Join(s.TempDir, s.FileStem+".mp4"))
			unarchived := filepath.Join(root, "unarchived")

			n := &recordingNotifier{}
			a := NewArchiver(n, Config{UnarchivedRoot: unarchived}, nil)
			report := a.Archive(context.Background(), tt.outcome, testVideo, []*capture.Session{s})

			if report.Destination != unarchived {
				t.Fatalf("destination = %q, want %q", report.Destination, unarchived)
			}
			if _, err := os.Stat(filepath.Join(unarchived, s.FileStem+".mp4")); err != nil {
				t.Fatalf("recording not unarchived: %v", err)
			}
			want := tt.event + ",unmark:" + testVideo
			if strings.Join(n.events, ",") != want {
				t.Fatalf("events = %v, want %s", n.events, want)
			}
		})
	}
}

func TestArchiveNothingMovedSkipsOutcomeEvent(t *testing.T) {
	root := t.TempDir()
	s := newTestSession(t, root)

	n := &recordingNotifier{}
	a := NewArchiver(n, Config{UnarchivedRoot: filepath.Join(root, "unarchived")}, nil)
	report := a.Archive(context.Background(), Deleted, testVideo, []*capture.Session{s})

	if len(report.Moved) != 0 {
		t.Fatalf("moved = %v", report.Moved)
	}
	if strings.Join(n.events, ",") != "unmark:"+testVideo {
		t.Fatalf("events = %v", n.events)
	}
}

func TestArchiveSameDirectoryLeavesFiles(t *testing.T) {
	root := t.TempDir()
	s := newTestSession(t, root)
	s.OutputDir = s.TempDir
	path := filepath.Join(s.TempDir, s.FileStem+".mp4")
	writeFile(t, path)

	report := NewArchiver(&recordingNotifier{}, Config{}, nil).Archive(context.Background(), Normal, testVideo, []*capture.Session{s})
	if len(report.Moved) != 0 || len(report.Failed) != 0 {
		t.Fatalf("report = %+v", report)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file should stay in place: %v", err)
	}
}

func TestArchiveAcrossDays(t *testing.T) {
	root := t.TempDir()
	first := newTestSession(t, root)
	layout := capture.Layout{TempRoot: filepath.Join(root, "temp"), OutputRoot: filepath.Join(root, "out")}
	second, err := capture.NewSession(layout, "UCchannel", testVideo, time.Date(2024, 5, 2, 1, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(first.TempDir, first.FileStem+".mp4"))
	writeFile(t, filepath.Join(second.TempDir, second.FileStem+".mp4"))

	report := NewArchiver(&recordingNotifier{}, Config{}, nil).
		Archive(context.Background(), Normal, testVideo, []*capture.Session{first, first, second})
	if len(report.Moved) != 2 {
		t.Fatalf("moved = %v, want 2 files", report.Moved)
	}
	for _, s := range []*capture.Session{first, second} {
		if _, err := os.Stat(filepath.Join(s.OutputDir, s.FileStem+".mp4")); err != nil {
			t.Fatalf("missing %s: %v", s.FileStem, err)
		}
	}
}

func TestArchiveFailureWritesErrorFile(t *testing.T) {
	root := t.TempDir()
	s := newTestSession(t, root)
	writeFile(t, filepath.Join(s.TempDir, s.FileStem+".mp4"))
	// A directory at the destination path makes the rename fail.
	if err := os.MkdirAll(filepath.Join(s.OutputDir, s.FileStem+".mp4", "x"), 0o755); err != nil {
		t.Fatal(err)
	}

	n := &recordingNotifier{}
	report := NewArchiver(n, Config{}, nil).Archive(context.Background(), Normal, testVideo, []*capture.Session{s})
	if len(report.Failed) != 1 {
		t.Fatalf("failed = %v, want 1", report.Failed)
	}
	data, err := os.ReadFile(filepath.Join(s.TempDir, s.FileStem+"_err.txt"))
	if err != nil {
		t.Fatalf("error file: %v", err)
	}
	if !strings.Contains(string(data), s.FileStem+".mp4") {
		t.Fatalf("error file = %q", data)
	}
	if strings.Join(n.events, ",") != "unmark:"+testVideo {
		t.Fatalf("events = %v", n.events)
	}
}

func TestArchiveFailureInContainerSkipsErrorFile(t *testing.T) {
	root := t.TempDir()
	s := newTestSession(t, root)
	writeFile(t, filepath.Join(s.TempDir, s.FileStem+".mp4"))
	if err := os.MkdirAll(filepath.Join(s.OutputDir, s.FileStem+".mp4", "x"), 0o755); err != nil {
		t.Fatal(err)
	}

	n := &recordingNotifier{}
	NewArchiver(n, Config{InContainer: true, HostID: "h"}, nil).Archive(context.Background(), Normal, testVideo, []*capture.Session{s})
	if _, err := os.Stat(filepath.Join(s.TempDir, s.FileStem+"_err.txt")); !os.IsNotExist(err) {
		t.Fatalf("error file should not exist, stat err = %v", err)
	}
	if strings.Join(n.events, ",") != "unmark:"+testVideo {
		t.Fatalf("events = %v", n.events)
	}
}
