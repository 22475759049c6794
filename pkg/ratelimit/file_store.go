package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps every entry in memory and rewrites the whole JSON file
// on Flush
type FileStore struct {
	mu      sync.Mutex
	path    string
	entries map[string]Entry
}

// OpenFileStore reads path in full. A missing file is created holding an
// empty object; a file that does not decode returns ErrMalformedState.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:    path,
		entries: make(map[string]Entry),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		if err := s.write(); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read rate limit state: %w", err)
	}

	if err := json.Unmarshal(data, &s.entries); err != nil {
		if errors.Is(err, ErrMalformedState) {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return nil, fmt.Errorf("%s: %w: %v", path, ErrMalformedState, err)
	}
	if s.entries == nil {
		// the file held a JSON null
		s.entries = make(map[string]Entry)
	}

	return s, nil
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(_ context.Context, clientID string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[clientID]
	return e, ok, nil
}

func (s *FileStore) Put(_ context.Context, clientID string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[clientID] = entry
	return nil
}

func (s *FileStore) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write()
}

func (s *FileStore) Entries(_ context.Context) (map[string]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out, nil
}

func (s *FileStore) Delete(_ context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, clientID)
	return s.write()
}

// write replaces the state file through a temp file so readers never see a
// partial document. Callers hold s.mu.
func (s *FileStore) write() error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("failed to encode rate limit state: %w", err)
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync state file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close state file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
