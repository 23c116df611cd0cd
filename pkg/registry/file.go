package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists the destination set as a JSON array on disk.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at the given path.
//
// The file is created on first Save; a missing file reads as the empty set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the destination set from disk.
func (s *FileStore) Load(_ context.Context) ([]DestinationID, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrCorrupt, s.path, err)
	}

	var destinations []DestinationID
	if err := json.Unmarshal(content, &destinations); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrCorrupt, s.path, err)
	}

	return destinations, nil
}

// Save atomically replaces the stored set.
//
// The set is written to a temp file in the same directory and renamed over
// the target, so a crash mid-write leaves the previous state intact.
func (s *FileStore) Save(_ context.Context, destinations []DestinationID) error {
	if destinations == nil {
		destinations = []DestinationID{}
	}

	content, err := json.Marshal(destinations)
	if err != nil {
		return fmt.Errorf("encode destinations: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp registry file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp registry file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp registry file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("commit registry file: %w", err)
	}

	return nil
}
