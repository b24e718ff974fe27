package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tapvault/tapvault/internal/configs"
	terrors "github.com/tapvault/tapvault/internal/errors"
	"github.com/tapvault/tapvault/internal/ui"

	"github.com/spf13/cobra"
)

var configShowJSON bool

func init() {
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output in JSON format")
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Displays the installation configuration: identity, authenticator
settings, and resolver settings. Values left unset in the config file are
shown with their effective defaults.

Examples:
  tapvault config show
  tapvault config show --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config show command")

		config, err := configs.LoadConfig()
		if errors.Is(err, terrors.ErrNotInitialized) {
			if configShowJSON {
				fmt.Println("{}")
				return nil
			}
			fmt.Println(notInitializedMessage())
			return nil
		}
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load config: %v", err)
		}

		if configShowJSON {
			output, err := json.MarshalIndent(config, "", "  ")
			if err != nil {
				return Logger.ErrorfAndReturn("failed to marshal config to JSON: %v", err)
			}
			fmt.Println(string(output))
			return nil
		}

		printConfigText(config)
		return nil
	},
}

// printConfigText prints the configuration in a human-readable format.
func printConfigText(config *configs.Config) {
	fmt.Println(ui.Info.Sprint("Installation") + " " + ui.Muted.Sprint(configs.ConfigFilePath()))
	fmt.Println()
	fmt.Printf("  %-16s %s\n", "Installation ID:", ui.Highlight.Sprint(config.Installation.UUID))
	fmt.Printf("  %-16s %s\n", "Relying party:", ui.Success.Sprint(config.Installation.RelyingPartyID))
	if !config.Installation.CreatedAt.IsZero() {
		fmt.Printf("  %-16s %s\n", "Created:", config.Installation.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	}

	fmt.Println()
	fmt.Println(ui.Info.Sprint("Authenticator"))
	fmt.Println()
	fmt.Printf("  %-16s %s\n", "Kind:", ui.Success.Sprint(config.Authenticator.Kind))
	fmt.Printf("  %-16s %s\n", "Presence delay:", config.PresenceDelay())
	fmt.Printf("  %-16s %s\n", "Timeout:", config.AuthenticatorTimeout())

	fmt.Println()
	fmt.Println(ui.Info.Sprint("Resolver"))
	fmt.Println()
	fmt.Printf("  %-16s %s\n", "Provider:", ui.Success.Sprint(config.Resolver.Provider))
	fmt.Printf("  %-16s %s\n", "Timeout:", config.ResolverTimeout())
}
