// Package storage loads and caches draw history.
//
// Store persists one JSON history file per game with atomic writes. Manager
// resolves a game's history from the cache, a remote fetcher, a local
// dataset file or a seeded simulation, in that order, and writes every
// refreshed history back to the cache.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rewired-gh/meihua/internal/models"
)

// ErrNoData is returned when no history source produced a record.
var ErrNoData = errors.New("no history data available")

const cacheVersion = "1.0"

// Store is the file-backed history cache.
type Store struct {
	dir             string
	filePermissions os.FileMode
	dirPermissions  os.FileMode
	mu              sync.Mutex
}

// PersistenceFile represents the file structure for JSON persistence
type PersistenceFile struct {
	Version string                 `json:"version"`
	SavedAt time.Time              `json:"saved_at"`
	Game    models.GameType        `json:"game"`
	Records []models.HistoryRecord `json:"records"`
}

// NewStore creates a cache rooted at dir.
// If dir is empty, uses OS-appropriate tmp directory
func NewStore(dir string, filePermissions, dirPermissions os.FileMode) *Store {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "meihua", "cache")
	}
	if filePermissions == 0 {
		filePermissions = 0o644
	}
	if dirPermissions == 0 {
		dirPermissions = 0o755
	}
	return &Store{dir: dir, filePermissions: filePermissions, dirPermissions: dirPermissions}
}

// Path returns the cache file of a game.
func (s *Store) Path(game models.GameType) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_history.json", game))
}

// Save writes the history of a game.
func (s *Store) Save(game models.GameType, records []models.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, s.dirPermissions); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data := PersistenceFile{
		Version: cacheVersion,
		SavedAt: time.Now().UTC(),
		Game:    game,
		Records: records,
	}
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	// Write to temporary file first (atomic write)
	path := s.Path(game)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, jsonData, s.filePermissions); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// Load reads the cached history of a game. A missing cache yields no
// records and no error.
func (s *Store) Load(game models.GameType) ([]models.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(game)
	// Clean up any stale temp files from previous crashes
	tempPath := path + ".tmp"
	if _, err := os.Stat(tempPath); err == nil {
		_ = os.Remove(tempPath)
	}

	jsonData, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var data PersistenceFile
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	if data.Game != "" && data.Game != game {
		return nil, fmt.Errorf("cache holds %s history, not %s", data.Game, game)
	}
	return data.Records, nil
}
