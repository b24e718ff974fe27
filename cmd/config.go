package cmd

import (
	"github.com/spf13/cobra"
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}

// resetConfigCommandState resets the config command's global state for testing.
func resetConfigCommandState() {
	configShowJSON = false
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect tapvault configuration",
	Long: `Provides commands for inspecting the installation configuration.

Examples:
  # Show the current configuration
  tapvault config show

  # Show where tapvault reads and writes its files
  tapvault config path`,
}
