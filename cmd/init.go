package cmd

import (
	"context"
	"errors"
	"fmt"

	terrors "github.com/tapvault/tapvault/internal/errors"
	"github.com/tapvault/tapvault/internal/ui"
	"github.com/tapvault/tapvault/internal/workflows"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var initForce bool

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "recreate the configuration even if one exists")
}

// resetInitCommandState resets the init command's global state for testing.
func resetInitCommandState() {
	initForce = false
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize tapvault for this user",
	Long: `Creates the tapvault configuration directory with a fresh installation
UUID and prepares the data directory for the secret store.

Run this once per user before storing secrets. Use --force to recreate
the configuration; stored secrets are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting init command")
		if initForce {
			Logger.WarnfAlways("Forcing initialization. Stored secrets keep working; a fresh installation id is generated.")
		}
		spinner, cleanup := startSpinner("Initializing tapvault...")
		defer cleanup()

		result, err := workflows.Init(context.Background(), workflows.InitOptions{Force: initForce})
		if errors.Is(err, terrors.ErrAlreadyInitialized) {
			spinner.FinalMSG = ui.Error.Sprint("✗") + " Tapvault has already been initialized\n" +
				ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("tapvault init --force") + " to recreate the configuration"
			return nil
		}
		if err != nil {
			return Logger.ErrorfAndReturn("failed to initialize: %v", err)
		}

		if !verbose && !debug {
			spinner.Stop()
		}
		fmt.Println()
		figure.NewColorFigure("Tapvault", "alligator2", "green", true).Print()
		fmt.Println()

		headline := " Tapvault initialized successfully!"
		if result.Recreated {
			headline = " Tapvault configuration recreated"
		}
		spinner.FinalMSG = ui.Success.Sprint("✓") + headline + "\n" +
			"    created: " + ui.Path.Sprint(result.ConfigPath) + "\n" +
			"    installation: " + ui.Muted.Sprint(result.InstallationUUID) + "\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("tapvault set <id>") + " to store your first secret"
		return nil
	},
}
