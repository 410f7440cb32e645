package capture

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewSessionCreatesDatedDirs(t *testing.T) {
	root := t.TempDir()
	layout := Layout{
		TempRoot:   filepath.Join(root, "temp"),
		OutputRoot: filepath.Join(root, "out"),
	}
	at := time.Date(2024, 5, 1, 21, 3, 7, 0, time.Local)

	s, err := NewSession(layout, "UC1opHUrw8rvnsadT-iGp7Cg", "abcdefghijk", at)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if s.FileStem != "youtube_UC1opHUrw8rvnsadT-iGp7Cg_20240501_210307_abcdefghijk" {
		t.Fatalf("FileStem = %q", s.FileStem)
	}
	if s.TempDir != filepath.Join(root, "temp", "20240501") || s.OutputDir != filepath.Join(root, "out", "20240501") {
		t.Fatalf("dirs = %q, %q", s.TempDir, s.OutputDir)
	}
	for _, dir := range []string{s.TempDir, s.OutputDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("%s not created: %v", dir, err)
		}
	}
	if got := s.OutputTemplate(); got != filepath.Join(s.TempDir, s.FileStem+".%(ext)s") {
		t.Fatalf("OutputTemplate() = %q", got)
	}
	if s.ID == "" {
		t.Fatalf("session id is empty")
	}
}
