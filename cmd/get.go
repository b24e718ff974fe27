package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	terrors "github.com/tapvault/tapvault/internal/errors"
	"github.com/tapvault/tapvault/internal/ui"
	"github.com/tapvault/tapvault/internal/workflows"

	"github.com/spf13/cobra"
)

var getQuiet bool

func init() {
	getCmd.Flags().BoolVarP(&getQuiet, "quiet", "q", false, "suppress prompts and hints on stderr")
}

// resetGetCommandState resets the get command's global state for testing.
func resetGetCommandState() {
	getQuiet = false
}

var getCmd = &cobra.Command{
	Use:     "get <id>",
	Aliases: []string{"export"},
	Short:   "Decrypt and print a stored secret",
	Long: `Runs a user-presence ceremony on the authenticator and prints the
decrypted value alone on stdout, so it can be piped or captured by
scripts. Prompts and status go to stderr.

Examples:
  tapvault get stripe_api_key
  DB_PASSWORD=$(tapvault get db_password --quiet)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting get command")
		id := args[0]

		if !getQuiet {
			Logger.WarnfUser("Touch your authenticator to unlock %s...", id)
		}

		result, err := workflows.Get(context.Background(), workflows.GetOptions{ID: id})
		switch {
		case err == nil:
		case errors.Is(err, terrors.ErrNotInitialized):
			fmt.Fprintln(os.Stderr, notInitializedMessage())
			return err
		case errors.Is(err, terrors.ErrSecretNotFound):
			fmt.Fprintln(os.Stderr, ui.Error.Sprint("✗")+" No secret with id "+ui.Highlight.Sprint(id))
			fmt.Fprintln(os.Stderr, ui.Info.Sprint("→")+" Run "+ui.Code.Sprint("tapvault list")+" to see stored secrets")
			return err
		case errors.Is(err, terrors.ErrUnsupportedRecord):
			fmt.Fprintln(os.Stderr, ui.Error.Sprint("✗")+" Record "+ui.Highlight.Sprint(id)+" is not hardware-bound and cannot be decrypted")
			fmt.Fprintln(os.Stderr, ui.Info.Sprint("→")+" Re-create it with "+ui.Code.Sprint("tapvault set "+id))
			return err
		case errors.Is(err, terrors.ErrUserCancelled):
			fmt.Fprintln(os.Stderr, ui.Error.Sprint("✗")+" Verification cancelled")
			return err
		default:
			return Logger.ErrorfAndReturn("failed to get secret: %v", err)
		}

		// The value goes to stdout alone; everything else is stderr.
		fmt.Println(result.Value)

		if !getQuiet {
			fmt.Fprintln(os.Stderr, ui.Success.Sprint("✓")+" Unlocked "+ui.Highlight.Sprint(result.Label))
		}
		return nil
	},
}
