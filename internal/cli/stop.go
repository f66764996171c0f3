package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voslin/gantry/internal/instance"
	"github.com/voslin/gantry/internal/paths"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running gantry instance",
	Long:  "Ask the running gantry instance to shut down. The engine is stopped gracefully before the host exits.",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	running, _ := instance.IsOwnerRunning(paths.LockPath())
	if !running {
		fmt.Println("gantry is not running")
		return nil
	}

	if err := instance.Notify(paths.SocketPath(), instance.MsgQuit); err != nil {
		return fmt.Errorf("request shutdown: %w", err)
	}

	fmt.Println("shutdown requested")
	return nil
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
