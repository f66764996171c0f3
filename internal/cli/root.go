package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// gantryDir is the global --gantry-dir flag value.
var gantryDir string

var rootCmd = &cobra.Command{
	Use:   "gantry",
	Short: "Backend engine host",
	Long:  "gantry launches and supervises the local backend engine, then hands off to the web dashboard once it is ready.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set GANTRY_DIR environment variable if --gantry-dir is provided.
		// This allows all path helpers to use the override.
		if gantryDir != "" {
			if err := os.Setenv("GANTRY_DIR", gantryDir); err != nil {
				return err
			}
		}
		return nil
	},
	RunE: runShell,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&gantryDir, "gantry-dir", "", "base directory for gantry data (overrides ~/.gantry)")
}

func Execute() error {
	return rootCmd.Execute()
}
