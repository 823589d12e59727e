// Package settings exposes the user preferences consumed by the session
// pipeline and the overlay. The daemon is not the owner of these values;
// they arrive from configuration or from the local API.
package settings

import (
	"sync"

	"github.com/mohammad-safakhou/dealwatch/config"
)

// Store is the read surface the pipeline depends on.
type Store interface {
	Enabled() bool
	Country() string
	HistoryRange() string
	Shops() []int
	ShowQuickLinks() bool
	DateFormat() string
}

// Static serves fixed values from configuration.
type Static struct {
	cfg config.SettingsConfig
}

func NewStatic(cfg config.SettingsConfig) *Static {
	return &Static{cfg: cfg.Normalize()}
}

func (s *Static) Enabled() bool        { return s.cfg.Enabled }
func (s *Static) Country() string      { return s.cfg.Country }
func (s *Static) HistoryRange() string { return s.cfg.HistoryRange }
func (s *Static) Shops() []int         { return append([]int(nil), s.cfg.Shops...) }
func (s *Static) ShowQuickLinks() bool { return s.cfg.ShowQuickLinks }
func (s *Static) DateFormat() string   { return s.cfg.DateFormat }

// Memory is a mutable store, updated through the local API.
type Memory struct {
	mu  sync.RWMutex
	cfg config.SettingsConfig
}

func NewMemory(cfg config.SettingsConfig) *Memory {
	return &Memory{cfg: cfg.Normalize()}
}

func (m *Memory) Snapshot() config.SettingsConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Update replaces the current preferences after validation.
func (m *Memory) Update(cfg config.SettingsConfig) error {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}

func (m *Memory) Enabled() bool        { m.mu.RLock(); defer m.mu.RUnlock(); return m.cfg.Enabled }
func (m *Memory) Country() string      { m.mu.RLock(); defer m.mu.RUnlock(); return m.cfg.Country }
func (m *Memory) HistoryRange() string { m.mu.RLock(); defer m.mu.RUnlock(); return m.cfg.HistoryRange }
func (m *Memory) Shops() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.cfg.Shops...)
}
func (m *Memory) ShowQuickLinks() bool { m.mu.RLock(); defer m.mu.RUnlock(); return m.cfg.ShowQuickLinks }
func (m *Memory) DateFormat() string   { m.mu.RLock(); defer m.mu.RUnlock(); return m.cfg.DateFormat }
