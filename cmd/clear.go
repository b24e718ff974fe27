package cmd

import (
	"context"
	"errors"
	"fmt"

	terrors "github.com/tapvault/tapvault/internal/errors"
	"github.com/tapvault/tapvault/internal/ui"
	"github.com/tapvault/tapvault/internal/workflows"

	"github.com/spf13/cobra"
)

var clearForce bool

func init() {
	clearCmd.Flags().BoolVarP(&clearForce, "force", "f", false, "skip the confirmation prompt")
}

// resetClearCommandState resets the clear command's global state for testing.
func resetClearCommandState() {
	clearForce = false
}

var clearCmd = &cobra.Command{
	Use:     "clear",
	Aliases: []string{"purge"},
	Short:   "Remove every stored secret",
	Long: `Empties the secret store. Every record is removed and no value is
recoverable afterwards. The installation itself stays initialized, so new
secrets can be stored immediately.

Use --force to skip the confirmation prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting clear command")

		listing, err := workflows.List(context.Background())
		if err != nil {
			if errors.Is(err, terrors.ErrNotInitialized) {
				fmt.Println(notInitializedMessage())
				return err
			}
			return Logger.ErrorfAndReturn("failed to read the secret store: %v", err)
		}

		count := len(listing.Secrets)
		if count == 0 {
			fmt.Println(ui.Success.Sprint("✓") + " Nothing to clear.")
			return nil
		}

		if !clearForce {
			Logger.WarnfUser("This permanently deletes all %d secret(s). No value can be recovered.", count)
			if !confirmAction("Do you want to continue? [y/N]: ") {
				fmt.Println("Aborted.")
				return nil
			}
		}

		result, err := workflows.Clear(context.Background())
		if err != nil {
			return Logger.ErrorfAndReturn("failed to clear the secret store: %v", err)
		}

		fmt.Println(ui.Success.Sprint("✓") + fmt.Sprintf(" Removed %d secret(s)", result.RemovedCount))
		return nil
	},
}
