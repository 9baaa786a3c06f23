package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"basewatch/internal/types"
)

// FileStore keeps both collections in a single JSON document and replaces it
// with a write-then-rename, so readers never observe a partial write. Saves
// are serialized; each writes its own temp file before the rename, so
// concurrent callers cannot clobber an in-flight write.
type FileStore struct {
	mu   sync.Mutex
	path string
}

type fileState struct {
	Alerts        []types.Alert        `json:"alerts"`
	Notifications []types.Notification `json:"notifications"`
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Load() ([]types.Alert, []types.Notification, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	return state.Alerts, state.Notifications, nil
}

func (s *FileStore) Save(alerts []types.Alert, notifications []types.Notification) error {
	data, err := json.MarshalIndent(fileState{Alerts: alerts, Notifications: notifications}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
