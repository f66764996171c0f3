package instance

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestAcquireRelease(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "gantry.lock")

	lock, err := Acquire(lockPath)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	pid, err := OwnerPID(lockPath)
	if err != nil {
		t.Fatalf("OwnerPID() error = %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("OwnerPID() = %d, want %d", pid, os.Getpid())
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Error("lock file still exists after Release()")
	}
}

func TestAcquire_SecondCallerFails(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "gantry.lock")

	lock, err := Acquire(lockPath)
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer lock.Release()

	// Our own PID is in the file and we are certainly alive, so a second
	// acquire on the same machine/session must fail.
	if _, err := Acquire(lockPath); err == nil {
		t.Fatal("second Acquire() succeeded, want failure")
	}
}

func TestAcquire_ReclaimsStaleLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "gantry.lock")

	// Write a lock file for a PID that cannot be running.
	if err := os.WriteFile(lockPath, []byte("999999999\n"), 0600); err != nil {
		t.Fatal(err)
	}

	lock, err := Acquire(lockPath)
	if err != nil {
		t.Fatalf("Acquire() with stale lock error = %v", err)
	}
	defer lock.Release()

	pid, err := OwnerPID(lockPath)
	if err != nil {
		t.Fatalf("OwnerPID() error = %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("reclaimed lock holds pid %d, want %d", pid, os.Getpid())
	}
}

func TestAcquire_ReclaimsCorruptLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "gantry.lock")

	if err := os.WriteFile(lockPath, []byte("not a pid"), 0600); err != nil {
		t.Fatal(err)
	}

	lock, err := Acquire(lockPath)
	if err != nil {
		t.Fatalf("Acquire() with corrupt lock error = %v", err)
	}
	defer lock.Release()
}

func TestAcquire_CreatesParentDirectory(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "nested", "deeper", "gantry.lock")

	lock, err := Acquire(lockPath)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer lock.Release()
}

func TestIsOwnerRunning(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "gantry.lock")

	if running, _ := IsOwnerRunning(lockPath); running {
		t.Error("IsOwnerRunning() = true with no lock file")
	}

	if err := os.WriteFile(lockPath, []byte(strconv.Itoa(os.Getpid())), 0600); err != nil {
		t.Fatal(err)
	}

	running, pid := IsOwnerRunning(lockPath)
	if !running {
		t.Error("IsOwnerRunning() = false for live owner")
	}
	if pid != os.Getpid() {
		t.Errorf("IsOwnerRunning() pid = %d, want %d", pid, os.Getpid())
	}
}
