package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/voslin/gantry/internal/config"
	"github.com/voslin/gantry/internal/health"
	"github.com/voslin/gantry/internal/instance"
	"github.com/voslin/gantry/internal/paths"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show host and engine status",
	Long:  "Display whether a gantry instance is running and whether the engine answers its readiness endpoint.",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	running, pid := instance.IsOwnerRunning(paths.LockPath())
	if !running {
		fmt.Println("gantry is not running")
		return nil
	}
	fmt.Printf("gantry running (pid %d)\n", pid)

	probe := health.New(cfg.HealthURL(), cfg.Probe.RequestTimeout.Std())
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	result := probe.Check(ctx)
	switch {
	case result.Ready():
		fmt.Printf("engine ready at %s\n", cfg.BaseURL())
	case result.Reachable:
		fmt.Printf("engine reachable but not ready (status %d)\n", result.StatusCode)
	default:
		fmt.Println("engine not reachable")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
