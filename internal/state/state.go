// Package state owns the only data that survives restarts: the trading
// position ledger for one pair, persisted as a human-readable YAML document
// with atomic write-then-rename semantics.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Phase is the inventory bootstrap phase. Done is monotonic: once set it
// never reverts within a process lifetime.
type Phase string

const (
	PhasePending Phase = "PENDING"
	PhaseDone    Phase = "DONE"
)

// State is the persistent trading state. Zero prices mean "unset"; a
// position is open exactly when EntryPrice > 0.
type State struct {
	LastRegime        string  `yaml:"last_regime"`
	LastExitPrice     float64 `yaml:"last_exit_price"`
	LastExitAt        int64   `yaml:"last_exit_at"`
	GridAnchor        float64 `yaml:"grid_anchor"`
	TrailActive       bool    `yaml:"trail_active"`
	TrailAnchorPrice  float64 `yaml:"trail_anchor_price"`
	TrailDist         float64 `yaml:"trail_dist"`
	AddCount          int     `yaml:"add_count"`
	LastAddPrice      float64 `yaml:"last_add_price"`
	Bootstrap         Phase   `yaml:"bootstrap_phase"`
	DailyLossRealized float64 `yaml:"daily_loss_realized"`
	LossDay           string  `yaml:"loss_day"`
	EntryPrice        float64 `yaml:"entry_price"`
	OpenedAt          int64   `yaml:"opened_at"`
	OrderIntent       string  `yaml:"order_intent"`
}

// Default is the state of a fresh deployment.
func Default() *State {
	return &State{Bootstrap: PhasePending}
}

// HasPosition reports whether an entry price is recorded.
func (s *State) HasPosition() bool {
	return s.EntryPrice > 0
}

// OpenPosition records a fresh entry.
func (s *State) OpenPosition(price float64, at time.Time) {
	s.EntryPrice = price
	s.LastAddPrice = price
	s.AddCount = 0
	s.OpenedAt = at.Unix()
	s.TrailActive = false
	s.TrailAnchorPrice = 0
	s.TrailDist = 0
}

// ClosePosition clears the position and records the exit for re-entry
// suppression.
func (s *State) ClosePosition(exitPrice float64, at time.Time) {
	s.LastExitPrice = exitPrice
	s.LastExitAt = at.Unix()
	s.EntryPrice = 0
	s.OpenedAt = 0
	s.AddCount = 0
	s.LastAddPrice = 0
	s.TrailActive = false
	s.TrailAnchorPrice = 0
	s.TrailDist = 0
}

// RollLossDay resets the realized daily loss when the UTC day changes.
func (s *State) RollLossDay(now time.Time) {
	day := now.UTC().Format("2006-01-02")
	if s.LossDay != day {
		s.LossDay = day
		s.DailyLossRealized = 0
	}
}

// Validate rejects snapshots a restart must not trust. Malformed persisted
// fields fail fast instead of being coerced.
func (s *State) Validate(maxAdds int) error {
	if s.AddCount < 0 || (maxAdds >= 0 && s.AddCount > maxAdds) {
		return fmt.Errorf("state: add_count %d out of range [0,%d]", s.AddCount, maxAdds)
	}
	switch s.Bootstrap {
	case PhasePending, PhaseDone:
	default:
		return fmt.Errorf("state: unknown bootstrap_phase %q", s.Bootstrap)
	}
	if s.TrailActive && (s.TrailAnchorPrice <= 0 || s.TrailDist <= 0) {
		return errors.New("state: trail_active without anchor price or distance")
	}
	if s.EntryPrice < 0 || s.LastExitPrice < 0 || s.LastAddPrice < 0 {
		return errors.New("state: negative price field")
	}
	if s.DailyLossRealized < 0 {
		return errors.New("state: negative daily_loss_realized")
	}
	return nil
}

// Store loads and saves the state file for one pair. At most one process may
// use a given path at a time; no cross-process locking is provided.
type Store struct {
	path    string
	maxAdds int
}

func NewStore(path string, maxAdds int) *Store {
	return &Store{path: path, maxAdds: maxAdds}
}

// Load reads the snapshot, applying defaults when no file exists yet.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: reading %s: %w", s.path, err)
	}
	st := Default()
	if err := yaml.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("state: parsing %s: %w", s.path, err)
	}
	if st.Bootstrap == "" {
		st.Bootstrap = PhasePending
	}
	if err := st.Validate(s.maxAdds); err != nil {
		return nil, err
	}
	return st, nil
}

// Save writes the snapshot atomically: temp file in the same directory, then
// rename over the target, so a crash mid-write never leaves a torn file.
func (s *Store) Save(st *State) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("state: marshal: %w", err)
	}
	dir := filepath.Dir(s.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("state: mkdir %s: %w", dir, err)
		}
	}
	tmp, err := os.CreateTemp(dir, ".state-*.yaml")
	if err != nil {
		return fmt.Errorf("state: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("state: writing %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("state: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("state: closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("state: replacing %s: %w", s.path, err)
	}
	return nil
}
