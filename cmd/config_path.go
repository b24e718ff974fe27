package cmd

import (
	"fmt"

	"github.com/tapvault/tapvault/internal/audit"
	"github.com/tapvault/tapvault/internal/configs"
	"github.com/tapvault/tapvault/internal/ui"

	"github.com/spf13/cobra"
)

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the paths tapvault reads and writes",
	Long: `Prints the location of every file this installation uses. Useful for
backups and for pointing other tooling at the store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config path command")

		fmt.Printf("%-12s %s\n", "Config:", ui.Path.Sprint(configs.ConfigFilePath()))
		fmt.Printf("%-12s %s\n", "Store:", ui.Path.Sprint(configs.StorePath()))
		fmt.Printf("%-12s %s\n", "Token state:", ui.Path.Sprint(configs.TokenStatePath()))
		fmt.Printf("%-12s %s\n", "Audit log:", ui.Path.Sprint(audit.LogPath()))
		return nil
	},
}
