// Package paths provides a single source of truth for gantry file paths.
// All path helpers honor environment variable overrides for isolated testing.
//
// Path resolution precedence:
//  1. Specific env vars (GANTRY_SOCKET_PATH, GANTRY_LOCK_PATH) take highest priority
//  2. GANTRY_DIR env var sets the base directory (derives socket/lock/state paths)
//  3. Default behavior (~/.gantry, ~/.config/gantry) when no env vars are set
package paths

import (
	"os"
	"path/filepath"
)

// Environment variable names for path overrides.
const (
	// EnvGantryDir is the base directory override (e.g., /tmp/gantry-test).
	// When set, socket, lock, and state paths derive from this directory.
	EnvGantryDir = "GANTRY_DIR"

	// EnvSocketPath overrides the instance socket path directly.
	EnvSocketPath = "GANTRY_SOCKET_PATH"

	// EnvLockPath overrides the instance lock file path directly.
	EnvLockPath = "GANTRY_LOCK_PATH"
)

// BaseDir returns the gantry base directory (~/.gantry by default).
// Honors GANTRY_DIR environment variable.
func BaseDir() (string, error) {
	if dir := os.Getenv(EnvGantryDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gantry"), nil
}

// ConfigDir returns the gantry config directory (~/.config/gantry by default).
// When GANTRY_DIR is set, returns GANTRY_DIR/config instead.
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvGantryDir); dir != "" {
		return filepath.Join(dir, "config"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "gantry"), nil
}

// ConfigPath returns the path to the gantry config file.
// (~/.config/gantry/config.toml by default, or GANTRY_DIR/config/config.toml).
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LockPath returns the instance lock file path.
// Precedence: GANTRY_LOCK_PATH > GANTRY_DIR/gantry.lock > ~/.gantry/gantry.lock
func LockPath() string {
	if path := os.Getenv(EnvLockPath); path != "" {
		return path
	}
	base, err := BaseDir()
	if err != nil {
		return "/tmp/gantry.lock"
	}
	return filepath.Join(base, "gantry.lock")
}

// SocketPath returns the instance socket path.
// Precedence: GANTRY_SOCKET_PATH > GANTRY_DIR/gantry.sock > ~/.gantry/gantry.sock
func SocketPath() string {
	if path := os.Getenv(EnvSocketPath); path != "" {
		return path
	}
	base, err := BaseDir()
	if err != nil {
		return "/tmp/gantry.sock"
	}
	return filepath.Join(base, "gantry.sock")
}

// WindowStatePath returns the window state file path
// (~/.gantry/window-state.json, or GANTRY_DIR/window-state.json).
func WindowStatePath() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "window-state.json"), nil
}

// LogPath returns the default log file path
// (~/.gantry/gantry.log, or GANTRY_DIR/gantry.log).
func LogPath() string {
	base, err := BaseDir()
	if err != nil {
		return "/tmp/gantry.log"
	}
	return filepath.Join(base, "gantry.log")
}

// EngineDir returns the directory holding the bundled engine binary
// (GANTRY_DIR/engine or ~/.gantry/engine).
func EngineDir() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "engine"), nil
}
