// Package windowstate persists the shell's window geometry between runs.
//
// Persistence is an optimization, not a dependency: a missing or malformed
// state file silently yields defaults and never blocks window creation.
package windowstate

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/voslin/gantry/internal/paths"
)

// Default geometry used when no valid state file exists.
const (
	DefaultWidth  = 1280
	DefaultHeight = 800
	DefaultZoom   = 0.0
)

// State is the persisted window record.
type State struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	X           int     `json:"x"`
	Y           int     `json:"y"`
	IsMaximized bool    `json:"isMaximized"`
	ZoomLevel   float64 `json:"zoomLevel"`
}

// Default returns the hard-coded fallback state.
func Default() State {
	return State{
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		ZoomLevel: DefaultZoom,
	}
}

// Store reads and writes the window state file.
type Store struct {
	path string
}

// NewStore creates a store at path, or the default per-user path if empty.
func NewStore(path string) *Store {
	if path == "" {
		if p, err := paths.WindowStatePath(); err == nil {
			path = p
		} else {
			path = filepath.Join(os.TempDir(), "gantry-window-state.json")
		}
	}
	return &Store{path: path}
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted state. Any read or parse failure falls back to
// defaults; corruption is logged at debug and otherwise invisible.
func (s *Store) Load() State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Debug("window state unreadable, using defaults", "error", err)
		}
		return Default()
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		slog.Debug("window state malformed, using defaults", "error", err)
		return Default()
	}
	if st.Width <= 0 || st.Height <= 0 {
		return Default()
	}
	return st
}

// Save writes the state. Transient geometry is never recorded: saves while
// maximized keep the last normal-mode width/height on disk and only update
// the maximize flag and zoom level.
func (s *Store) Save(st State) error {
	if st.IsMaximized {
		prev := s.Load()
		st.Width, st.Height = prev.Width, prev.Height
		st.X, st.Y = prev.X, prev.Y
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}
