package store

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"

	apperrors "discord-statuskeeper/internal/errors"
	"discord-statuskeeper/internal/status"
)

// Store persists a single DesiredStatus document as a JSON file. It is a
// passive serialization surface: the reconciler is the only writer.
type Store struct {
	mu   sync.Mutex
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted status. A missing or unreadable file is not an
// error from the caller's perspective: it returns ok=false and the caller
// falls back to the built-in default.
func (s *Store) Load() (status.DesiredStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("⚠️ Failed to read %s: %v", s.path, err)
		}
		return status.DesiredStatus{}, false
	}

	var st status.DesiredStatus
	if err := json.Unmarshal(b, &st); err != nil {
		log.Printf("⚠️ Failed to parse %s: %v", s.path, err)
		return status.DesiredStatus{}, false
	}
	return st, true
}

// Save writes the status document, creating the containing directory if
// needed. Failures are returned so the caller can log them and keep
// running in memory-only mode.
func (s *Store) Save(st status.DesiredStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return apperrors.NewPersistenceError("create status directory", err)
		}
	}

	b, err := json.MarshalIndent(&st, "", "  ")
	if err != nil {
		return apperrors.NewPersistenceError("encode status", err)
	}
	if err := os.WriteFile(s.path, b, 0644); err != nil {
		return apperrors.NewPersistenceError("write status file", err)
	}
	return nil
}

// Path returns the file path the store writes to.
func (s *Store) Path() string {
	return s.path
}
