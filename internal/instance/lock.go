// Package instance enforces single-instance execution for the gantry shell.
//
// The lock is a PID file created exclusively before any other initialization.
// A losing second launch signals the owner over the instance socket so it can
// surface its window, then exits without touching any other state.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/voslin/gantry/internal/paths"
)

// ErrHeldByOther indicates another live gantry process owns the lock.
var ErrHeldByOther = errors.New("another gantry instance is running")

// Lock is the machine-wide singleton token. Held for the lifetime of the
// process; Release removes the lock file on clean exit, and staleness
// detection recovers it after a crash.
type Lock struct {
	path string
}

// DefaultLockPath returns the default lock file path.
func DefaultLockPath() string {
	return paths.LockPath()
}

// Acquire attempts to become the sole gantry instance. On success the
// returned Lock must be released when the process exits. Returns
// ErrHeldByOther (with the owner still running) if the lock is taken; any
// other lock-file failure is treated the same way by callers.
func Acquire(path string) (*Lock, error) {
	if path == "" {
		path = DefaultLockPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	if err := writeExclusive(path); err == nil {
		return &Lock{path: path}, nil
	}

	// Lock file exists. Reclaim it if the recorded owner is gone.
	pid, err := readOwner(path)
	if err == nil && isProcessRunning(pid) {
		return nil, fmt.Errorf("%w (pid %d)", ErrHeldByOther, pid)
	}

	// Stale or unreadable lock file: remove and retry once.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale lock: %w", err)
	}
	if err := writeExclusive(path); err != nil {
		return nil, fmt.Errorf("%w", ErrHeldByOther)
	}
	return &Lock{path: path}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release removes the lock file. Safe to call once on process exit.
func (l *Lock) Release() error {
	err := os.Remove(l.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

// OwnerPID reads the PID recorded in a lock file.
// Returns 0 and an error if the file doesn't exist or is invalid.
func OwnerPID(path string) (int, error) {
	if path == "" {
		path = DefaultLockPath()
	}
	return readOwner(path)
}

// IsOwnerRunning reports whether a live process holds the lock at path,
// and returns its PID if so.
func IsOwnerRunning(path string) (bool, int) {
	pid, err := OwnerPID(path)
	if err != nil {
		return false, 0
	}
	if isProcessRunning(pid) {
		return true, pid
	}
	return false, 0
}

// writeExclusive creates the lock file with this process's PID, failing if
// the file already exists.
func writeExclusive(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	cerr := f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

func readOwner(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, err
		}
		return 0, fmt.Errorf("read lock file: %w", err)
	}

	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, fmt.Errorf("parse lock pid: %w", err)
	}
	return pid, nil
}

// isProcessRunning checks if a process with the given PID is running.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}

	// Send signal 0 to check if process exists
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = process.Signal(syscall.Signal(0))
	if err != nil {
		if errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
			return false
		}
		// EPERM means process exists but we can't signal it
		if errors.Is(err, syscall.EPERM) {
			return true
		}
		return false
	}

	return true
}
