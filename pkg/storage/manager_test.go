package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "downloads"))
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return m
}

func writeFile(t *testing.T, m *Manager, name, content string) string {
	t.Helper()
	path := filepath.Join(m.OutputDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestResolve(t *testing.T) {
	m := newManager(t)
	path := writeFile(t, m, "abc.mp4", "video")
	if err := os.Mkdir(filepath.Join(m.OutputDir(), "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	got, err := m.Resolve("abc.mp4")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != path {
		t.Errorf("Expected %s, got %s", path, got)
	}

	tests := []struct {
		name string
		want error
	}{
		{"", ErrInvalidName},
		{"../secret", ErrInvalidName},
		{"..", ErrInvalidName},
		{".hidden", ErrInvalidName},
		{"sub/abc.mp4", ErrInvalidName},
		{`sub\abc.mp4`, ErrInvalidName},
		{"missing.mp4", ErrNotFound},
		{"sub", ErrNotFound},
	}
	for _, tt := range tests {
		if _, err := m.Resolve(tt.name); !errors.Is(err, tt.want) {
			t.Errorf("Resolve(%q) error = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestName(t *testing.T) {
	m := newManager(t)

	name, err := m.Name(filepath.Join(m.OutputDir(), "abc.mp4"))
	if err != nil || name != "abc.mp4" {
		t.Errorf("Name() = %q, %v", name, err)
	}

	if _, err := m.Name("/etc/passwd"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Expected ErrInvalidName for a path outside the directory, got %v", err)
	}
	if _, err := m.Name(filepath.Join(m.OutputDir(), "nested", "abc.mp4")); err == nil {
		t.Error("Expected an error for a nested path")
	}
}

func TestSidecarRoundTrip(t *testing.T) {
	m := newManager(t)
	writeFile(t, m, "abc.mp4", "0123456789")

	meta := Metadata{
		DownloadID: "d1",
		SourceURL:  "https://www.instagram.com/reel/abc/",
		Kind:       "reel",
		MediaID:    "abc",
		Title:      "Sunset",
		File:       "abc.mp4",
	}
	if err := m.WriteSidecar(meta); err != nil {
		t.Fatalf("WriteSidecar failed: %v", err)
	}

	got, err := m.ReadSidecar("abc.mp4")
	if err != nil {
		t.Fatalf("ReadSidecar failed: %v", err)
	}
	if got.Title != "Sunset" || got.Kind != "reel" {
		t.Errorf("Unexpected metadata: %+v", got)
	}
	if got.FileSize != 10 {
		t.Errorf("Expected file size 10, got %d", got.FileSize)
	}
	if got.DownloadedAt.IsZero() {
		t.Error("Expected DownloadedAt to be set")
	}
	if _, err := os.Stat(filepath.Join(m.OutputDir(), "abc.mp4.info.json.tmp")); !os.IsNotExist(err) {
		t.Error("Temporary sidecar file was left behind")
	}
}

func TestSidecarForMissingFile(t *testing.T) {
	m := newManager(t)
	if err := m.WriteSidecar(Metadata{File: "nope.mp4"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	writeFile(t, m, "plain.mp4", "x")
	if _, err := m.ReadSidecar("plain.mp4"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a missing sidecar, got %v", err)
	}
}

func TestSweep(t *testing.T) {
	m := newManager(t)
	now := time.Now()
	m.now = func() time.Time { return now }
	past := now.Add(-10 * time.Minute)

	age := func(path string, at time.Time) {
		t.Helper()
		if err := os.Chtimes(path, at, at); err != nil {
			t.Fatal(err)
		}
	}

	old := writeFile(t, m, "old.mp4", "old")
	if err := m.WriteSidecar(Metadata{File: "old.mp4", DownloadedAt: past}); err != nil {
		t.Fatalf("WriteSidecar failed: %v", err)
	}
	writeFile(t, m, "fresh.mp4", "fresh")
	if err := m.WriteSidecar(Metadata{File: "fresh.mp4"}); err != nil {
		t.Fatalf("WriteSidecar failed: %v", err)
	}
	partial := writeFile(t, m, "abandoned.mp4.part", "half")
	age(partial, past)

	// files that were never downloads stay, however old
	unrelated := []string{"rate_limit.json", ".env", ".mediagate.yaml", "notes.txt", "orphan.mp4"}
	for _, name := range unrelated {
		age(writeFile(t, m, name, "keep"), now.Add(-time.Hour))
	}

	removed, err := m.Sweep(5 * time.Minute)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 downloads removed, got %d", removed)
	}
	for _, path := range []string{old, old + SidecarSuffix, partial} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("Expected %s to be deleted", filepath.Base(path))
		}
	}
	if _, err := m.Resolve("fresh.mp4"); err != nil {
		t.Errorf("Expected fresh file to remain: %v", err)
	}
	if _, err := m.ReadSidecar("fresh.mp4"); err != nil {
		t.Errorf("Expected fresh sidecar to remain: %v", err)
	}
	for _, name := range unrelated {
		if _, err := os.Stat(filepath.Join(m.OutputDir(), name)); err != nil {
			t.Errorf("Expected %s to survive the sweep: %v", name, err)
		}
	}
}

func TestSweepUsesRecordedDownloadTime(t *testing.T) {
	m := newManager(t)
	now := time.Now()
	m.now = func() time.Time { return now }

	// an old upload date on disk does not make a fresh download stale
	path := writeFile(t, m, "clip.mp4", "clip")
	if err := m.WriteSidecar(Metadata{File: "clip.mp4", DownloadedAt: now}); err != nil {
		t.Fatalf("WriteSidecar failed: %v", err)
	}
	past := now.Add(-48 * time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}

	removed, err := m.Sweep(5 * time.Minute)
	if err != nil || removed != 0 {
		t.Errorf("Sweep = %d, %v; want 0, nil", removed, err)
	}
}

func TestSweepDisabled(t *testing.T) {
	m := newManager(t)
	path := writeFile(t, m, "old.mp4", "old")
	past := time.Now().Add(-24 * time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}

	removed, err := m.Sweep(0)
	if err != nil || removed != 0 {
		t.Errorf("Sweep(0) = %d, %v", removed, err)
	}
}
