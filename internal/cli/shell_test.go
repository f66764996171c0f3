package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/voslin/gantry/internal/config"
	"github.com/voslin/gantry/internal/engine"
	"github.com/voslin/gantry/internal/instance"
	"github.com/voslin/gantry/internal/paths"
)

func TestRunShellSecondInstanceExitsWithoutSideEffects(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GANTRY_DIR", dir)
	t.Setenv("GANTRY_LOCK_PATH", "")
	t.Setenv("GANTRY_SOCKET_PATH", "")

	// This test process plays the running owner.
	lock, err := instance.Acquire(paths.LockPath())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer lock.Release()

	surfaced := make(chan struct{}, 1)
	listener := instance.NewListener(paths.SocketPath(),
		func() { surfaced <- struct{}{} },
		func() {},
	)
	if err := listener.Start(); err != nil {
		t.Fatalf("listener.Start() error = %v", err)
	}
	defer listener.Stop()

	if err := runShell(rootCmd, nil); err != nil {
		t.Fatalf("runShell() error = %v", err)
	}

	select {
	case <-surfaced:
	case <-time.After(2 * time.Second):
		t.Fatal("owner was not asked to surface")
	}

	// The loser must not have read config or opened the log file.
	if _, err := os.Stat(filepath.Join(dir, "gantry.log")); !os.IsNotExist(err) {
		t.Errorf("second instance created the log file (stat err = %v)", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config")); !os.IsNotExist(err) {
		t.Errorf("second instance created the config directory (stat err = %v)", err)
	}
}

func TestResolveBinaryExplicitConfigPath(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.Binary = "/opt/custom/engined"
	if got := resolveBinary(cfg); got != "/opt/custom/engined" {
		t.Errorf("resolveBinary() = %q, want explicit config path", got)
	}
}

func TestResolveBinaryManagedInstall(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GANTRY_DIR", dir)

	engineDir := filepath.Join(dir, "engine")
	if err := os.MkdirAll(engineDir, 0755); err != nil {
		t.Fatal(err)
	}
	managed := filepath.Join(engineDir, engine.BinaryName)
	if err := os.WriteFile(managed, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}

	if got := resolveBinary(config.Default()); got != managed {
		t.Errorf("resolveBinary() = %q, want managed install %q", got, managed)
	}
}

func TestResolveBinaryFallsBackWithoutManagedInstall(t *testing.T) {
	t.Setenv("GANTRY_DIR", t.TempDir())

	got := resolveBinary(config.Default())
	if filepath.Base(got) != engine.BinaryName {
		t.Errorf("resolveBinary() = %q, want a path to %s", got, engine.BinaryName)
	}
}
