package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/voslin/gantry/internal/config"
	"github.com/voslin/gantry/internal/engine"
	"github.com/voslin/gantry/internal/instance"
	"github.com/voslin/gantry/internal/lifecycle"
	"github.com/voslin/gantry/internal/logging"
	"github.com/voslin/gantry/internal/paths"
	"github.com/voslin/gantry/internal/shutdown"
	"github.com/voslin/gantry/internal/tui"
	"github.com/voslin/gantry/internal/windowstate"
)

// runShell is the default command: acquire the singleton lock, launch the
// engine, and run the interactive shell until shutdown confirms.
func runShell(cmd *cobra.Command, args []string) error {
	// The lock is the very first action, before config is read or the log
	// file is opened. A losing second instance must terminate without any
	// file side effect beyond the acquisition attempt itself.
	lock, err := instance.Acquire(paths.LockPath())
	if err != nil {
		// Ask the owner to bring its window to the foreground. Best effort:
		// the owner may be mid-startup and not listening yet.
		_ = instance.Notify(paths.SocketPath(), instance.MsgSurface)
		fmt.Println("gantry is already running; brought the existing window forward")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		_ = lock.Release()
		return fmt.Errorf("load config: %w", err)
	}

	logPath := cfg.Log.Path
	if logPath == "" {
		logPath = paths.LogPath()
	}
	cleanup, err := logging.Setup(logPath, logging.ParseLevel(cfg.Log.Level))
	if err != nil {
		_ = lock.Release()
		return fmt.Errorf("setup logging: %w", err)
	}
	defer cleanup()

	supervisor := engine.NewSupervisor()
	coordinator := shutdown.New(cfg.Shutdown.GracePeriod.Std(), cfg.Shutdown.HardStopMargin.Std())
	controller := lifecycle.New(lifecycle.Options{
		Config:      cfg,
		Supervisor:  supervisor,
		Coordinator: coordinator,
		Resolve:     func() string { return resolveBinary(cfg) },
		Lock:        lock,
	})

	statePath, err := paths.WindowStatePath()
	if err != nil {
		_ = lock.Release()
		return fmt.Errorf("window state path: %w", err)
	}

	return tui.Run(tui.Options{
		Controller:   controller,
		Supervisor:   supervisor,
		DashboardURL: cfg.DashboardURL(),
		WindowStore:  windowstate.NewStore(statePath),
	})
}

// resolveBinary maps config and runtime packaging state onto the engine
// binary path. An explicit config path always wins, then a managed install
// under the data directory, then the packaged or dev layout.
func resolveBinary(cfg *config.Config) string {
	if cfg.Engine.Binary != "" {
		return cfg.Engine.Binary
	}

	name := engine.BinaryName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	if dir, err := paths.EngineDir(); err == nil {
		managed := filepath.Join(dir, name)
		if _, err := os.Stat(managed); err == nil {
			return managed
		}
	}

	bundleDir := ""
	if exe, err := os.Executable(); err == nil {
		bundleDir = filepath.Dir(exe)
	}
	devDir, _ := os.Getwd()

	return engine.Resolve(engine.ResolveOptions{
		Packaged:  os.Getenv("GANTRY_PACKAGED") == "1",
		Platform:  runtime.GOOS,
		Debug:     cfg.Engine.Debug,
		BundleDir: bundleDir,
		DevDir:    devDir,
	})
}
