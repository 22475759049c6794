package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	// ErrInvalidName is returned for names that could escape the output directory
	ErrInvalidName = errors.New("invalid file name")

	// ErrNotFound is returned when no finished file has the given name
	ErrNotFound = errors.New("file not found")
)

// SidecarSuffix is appended to a media file name for its metadata file
const SidecarSuffix = ".info.json"

// Metadata is written next to every finished download
type Metadata struct {
	DownloadID   string    `json:"download_id"`
	SourceURL    string    `json:"source_url"`
	Kind         string    `json:"kind"`
	MediaID      string    `json:"media_id"`
	Shortcode    string    `json:"shortcode,omitempty"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Thumbnail    string    `json:"thumbnail,omitempty"`
	File         string    `json:"file"`
	FileSize     int64     `json:"file_size"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// Manager owns the media output directory
type Manager struct {
	outputDir string
	mu        sync.Mutex
	now       func() time.Time
}

// NewManager creates the output directory if needed
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	abs, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	return &Manager{outputDir: abs, now: time.Now}, nil
}

// OutputDir returns the absolute output directory
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// Resolve maps a bare file name to its path in the output directory.
// Names with separators, parent references or a leading dot are refused.
func (m *Manager) Resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") ||
		strings.ContainsAny(name, `/\`) {
		return "", ErrInvalidName
	}

	path := filepath.Join(m.outputDir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return path, nil
}

// Name returns the file name a client uses to fetch path, which must be
// inside the output directory
func (m *Manager) Name(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(m.outputDir, abs)
	if err != nil || rel != filepath.Base(rel) || strings.HasPrefix(rel, ".") {
		return "", fmt.Errorf("%s is outside %s: %w", path, m.outputDir, ErrInvalidName)
	}
	return rel, nil
}

// WriteSidecar records meta next to its media file. The file size is
// filled in from disk.
func (m *Manager) WriteSidecar(meta Metadata) error {
	path, err := m.Resolve(meta.File)
	if err != nil {
		return err
	}
	if info, err := os.Stat(path); err == nil {
		meta.FileSize = info.Size()
	}
	if meta.DownloadedAt.IsZero() {
		meta.DownloadedAt = m.now()
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	sidecar := path + SidecarSuffix
	tempFile := sidecar + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := os.Rename(tempFile, sidecar); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename metadata file: %w", err)
	}
	return nil
}

// ReadSidecar loads the metadata recorded for a media file
func (m *Manager) ReadSidecar(name string) (*Metadata, error) {
	path, err := m.Resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path + SidecarSuffix)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &meta, nil
}

// partialSuffixes mark files yt-dlp leaves behind for an unfinished
// download
var partialSuffixes = []string{".part", ".ytdl", ".temp", SidecarSuffix + ".tmp"}

func isPartial(name string) bool {
	if strings.Contains(name, ".part-Frag") {
		return true
	}
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// Sweep deletes downloads older than maxAge and returns how many were
// removed. Only media files with a sidecar and yt-dlp leftovers qualify;
// anything else in the directory is left alone. A media file's age is
// taken from its sidecar when recorded there. A zero maxAge keeps
// everything.
func (m *Manager) Sweep(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read directory: %w", err)
	}

	cutoff := m.now().Add(-maxAge)
	removed := 0
	var errs []error
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		var targets []string
		switch {
		case isPartial(name):
			if !info.ModTime().Before(cutoff) {
				continue
			}
			targets = []string{name}
		case strings.HasSuffix(name, SidecarSuffix):
			continue
		default:
			meta, err := m.ReadSidecar(name)
			if err != nil {
				continue
			}
			finished := meta.DownloadedAt
			if finished.IsZero() {
				finished = info.ModTime()
			}
			if !finished.Before(cutoff) {
				continue
			}
			targets = []string{name, name + SidecarSuffix}
		}

		if err := m.remove(targets...); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func (m *Manager) remove(names ...string) error {
	var errs []error
	for _, name := range names {
		if err := os.Remove(filepath.Join(m.outputDir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
