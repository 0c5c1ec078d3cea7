package storage

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rewired-gh/meihua/internal/logger"
	"github.com/rewired-gh/meihua/internal/models"
)

// Fetcher downloads the draw history of a game.
type Fetcher interface {
	Fetch(ctx context.Context, game models.GameConfig) ([]models.HistoryRecord, error)
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Game       models.GameConfig
	Store      *Store  // nil disables the cache
	Fetcher    Fetcher // nil skips the remote source
	DatasetDir string  // directory holding the local dataset files
	MaxPeriods int     // keep at most this many recent draws, 0 keeps all
	// ForceUpdate ignores a fresh cache.
	ForceUpdate bool
	// SimulatedPeriods sizes the simulated fallback. 0 uses MaxPeriods or
	// DefaultSimulatedPeriods, a negative value disables simulation.
	SimulatedPeriods int
	Seed             int64
	Now              func() time.Time
}

// Manager resolves the draw history of one game.
type Manager struct {
	cfg ManagerConfig
}

// NewManager creates a data manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{cfg: cfg}
}

// DatasetPath returns the local dataset file of the managed game.
func (m *Manager) DatasetPath() string {
	return filepath.Join(m.cfg.DatasetDir, m.cfg.Game.DatasetFile)
}

// Load returns the history, oldest first. A cache whose latest draw is from
// today is used as is. Otherwise the remote source, the local dataset and
// the simulation are tried in turn and the result is written to the cache.
func (m *Manager) Load(ctx context.Context) ([]models.HistoryRecord, error) {
	game := m.cfg.Game.Type

	cached := m.loadCache()
	if !m.needsUpdate(cached) {
		logger.Debug("Using %d cached %s draws", len(cached), game)
		return Tail(cached, m.cfg.MaxPeriods), nil
	}

	logger.Info("Updating %s history", game)
	records, err := m.refresh(ctx)
	if err != nil {
		return nil, err
	}

	if m.cfg.Store != nil {
		if err := m.cfg.Store.Save(game, records); err != nil {
			logger.Warn("Failed to cache %s history: %v", game, err)
		}
	}
	return records, nil
}

func (m *Manager) loadCache() []models.HistoryRecord {
	if m.cfg.Store == nil {
		return nil
	}
	records, err := m.cfg.Store.Load(m.cfg.Game.Type)
	if err != nil {
		logger.Warn("Cache unreadable, refreshing history: %v", err)
		return nil
	}
	return records
}

// needsUpdate reports whether the cache is missing, stale or overridden.
func (m *Manager) needsUpdate(cached []models.HistoryRecord) bool {
	if m.cfg.ForceUpdate {
		return true
	}
	latest, ok := Latest(cached)
	if !ok {
		return true
	}
	now := m.cfg.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.Sub(latest) >= 24*time.Hour
}

func (m *Manager) refresh(ctx context.Context) ([]models.HistoryRecord, error) {
	game := m.cfg.Game

	var records []models.HistoryRecord
	if m.cfg.Fetcher != nil {
		fetched, err := m.cfg.Fetcher.Fetch(ctx, game)
		if err != nil {
			logger.Warn("Download of %s history failed, trying local dataset: %v", game.Type, err)
		}
		records = fetched
	}

	if len(records) == 0 && m.cfg.DatasetDir != "" {
		local, err := LoadDataset(game.Type, m.DatasetPath())
		if err != nil {
			logger.Warn("Local dataset unusable: %v", err)
		} else if len(local) == 0 {
			logger.Warn("No local dataset at %s", m.DatasetPath())
		}
		records = local
	}

	if len(records) == 0 {
		periods := m.cfg.SimulatedPeriods
		if periods == 0 {
			periods = m.cfg.MaxPeriods
		}
		if periods == 0 {
			periods = DefaultSimulatedPeriods
		}
		if periods < 0 {
			return nil, ErrNoData
		}
		logger.Warn("Using %d simulated %s draws", periods, game.Type)
		return SimulatedHistory(game, periods, m.cfg.Now(), m.cfg.Seed), nil
	}

	records = append([]models.HistoryRecord(nil), records...)
	SortByTimestamp(records)
	return Tail(records, m.cfg.MaxPeriods), nil
}
