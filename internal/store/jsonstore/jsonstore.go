// Package jsonstore keeps the last synced list on disk so it can be shown
// when the service is out of reach. Single file, human-readable.
package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Makepad-fr/tada/internal/model"
)

const dataFileName = "todos.json"

// Snapshot is the list as the service last returned it for one account.
type Snapshot struct {
	Email   string       `json:"email,omitempty"`
	SavedAt time.Time    `json:"savedAt"`
	Items   []model.Item `json:"items"`
}

// Store reads and writes the snapshot file in dir.
type Store struct {
	dir string
}

func New(dir string) *Store { return &Store{dir: dir} }

func (s *Store) dataPath() string { return filepath.Join(s.dir, dataFileName) }

// Load returns nil without error when nothing was saved yet.
func (s *Store) Load() (*Snapshot, error) {
	b, err := os.ReadFile(s.dataPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if snap.Items == nil {
		snap.Items = []model.Item{}
	}
	return &snap, nil
}

// Save replaces the snapshot. The file is private to the user.
func (s *Store) Save(email string, items []model.Item, now time.Time) error {
	if items == nil {
		items = []model.Item{}
	}
	b, err := json.MarshalIndent(Snapshot{Email: email, SavedAt: now.UTC(), Items: items}, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp := s.dataPath() + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, s.dataPath()); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}

// Clear removes the snapshot. A missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.dataPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}
