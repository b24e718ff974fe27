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

var deleteForce bool

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "skip the confirmation prompt")
}

// resetDeleteCommandState resets the delete command's global state for testing.
func resetDeleteCommandState() {
	deleteForce = false
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a stored secret",
	Long: `Removes a secret and its credential binding from the store. The value
is unrecoverable afterwards.

Use --force to skip the confirmation prompt.

Examples:
  tapvault delete old_api_key
  tapvault delete old_api_key --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting delete command")
		id := args[0]

		if !deleteForce {
			Logger.WarnfUser("This permanently deletes %s. The value cannot be recovered.", id)
			if !confirmAction("Do you want to continue? [y/N]: ") {
				fmt.Println("Aborted.")
				return nil
			}
		}

		result, err := workflows.Delete(context.Background(), workflows.DeleteOptions{ID: id})
		switch {
		case err == nil:
		case errors.Is(err, terrors.ErrNotInitialized):
			fmt.Println(notInitializedMessage())
			return err
		case errors.Is(err, terrors.ErrSecretNotFound):
			fmt.Println(ui.Error.Sprint("✗") + " No secret with id " + ui.Highlight.Sprint(id))
			return err
		default:
			return Logger.ErrorfAndReturn("failed to delete secret: %v", err)
		}

		fmt.Println(ui.Success.Sprint("✓") + " Deleted " + ui.Highlight.Sprint(result.ID))
		return nil
	},
}
