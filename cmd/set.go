package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	terrors "github.com/tapvault/tapvault/internal/errors"
	"github.com/tapvault/tapvault/internal/ui"
	"github.com/tapvault/tapvault/internal/utils"
	"github.com/tapvault/tapvault/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	setLabel      string
	setValueStdin bool
	setForce      bool
)

func init() {
	setCmd.Flags().StringVarP(&setLabel, "label", "l", "", "human-readable label (defaults to the id)")
	setCmd.Flags().BoolVar(&setValueStdin, "value-stdin", false, "read the value from stdin instead of prompting")
	setCmd.Flags().BoolVarP(&setForce, "force", "f", false, "replace an existing secret without confirmation")
}

// resetSetCommandState resets the set command's global state for testing.
func resetSetCommandState() {
	setLabel = ""
	setValueStdin = false
	setForce = false
}

var setCmd = &cobra.Command{
	Use:   "set <id>",
	Short: "Store a secret bound to a hardware credential",
	Long: `Encrypts a value under a key derived from a freshly enrolled hardware
credential and stores it. Reading the value back always requires a
user-presence ceremony on the authenticator.

The value is prompted for with echoing disabled. Use --value-stdin to
pipe the value instead (a single trailing newline is stripped).

Setting an id that already exists replaces the whole record: new
credential, new key, new ciphertext.

Examples:
  tapvault set stripe_api_key
  tapvault set db_password --label "Production DB"
  cat token.txt | tapvault set github_token --value-stdin
  tapvault set stripe_api_key --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting set command")
		id := args[0]

		value, err := readValue(id)
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read value: %v", err)
		}
		if value == "" {
			return Logger.ErrorfAndReturn("secret value must not be empty")
		}

		Logger.WarnfUser("Touch your authenticator to enroll %s...", id)
		spinner, cleanup := startSpinner("Waiting for authenticator...")
		defer cleanup()

		opts := workflows.SetOptions{ID: id, Label: setLabel, Value: value, Replace: setForce}
		result, err := workflows.Set(context.Background(), opts)

		if errors.Is(err, terrors.ErrSecretExists) {
			if !verbose && !debug {
				spinner.Stop()
			}
			Logger.WarnfUser("A secret with id %s already exists", id)
			if !confirmAction("Replace it? [y/N]: ") {
				fmt.Println("Aborted.")
				fmt.Println(ui.Info.Sprint("→") + " Re-run with " + ui.Flag.Sprint("--force") + " to replace without prompting")
				return nil
			}
			Logger.WarnfUser("Touch your authenticator to enroll %s...", id)
			if !verbose && !debug {
				spinner.Restart()
			}
			opts.Replace = true
			result, err = workflows.Set(context.Background(), opts)
		}

		switch {
		case err == nil:
		case errors.Is(err, terrors.ErrNotInitialized):
			spinner.FinalMSG = notInitializedMessage()
			return err
		case errors.Is(err, terrors.ErrUserCancelled):
			spinner.FinalMSG = ui.Error.Sprint("✗") + " Enrollment cancelled"
			return err
		default:
			return Logger.ErrorfAndReturn("failed to store secret: %v", err)
		}

		headline := " Stored " + ui.Highlight.Sprint(result.ID)
		if result.Replaced {
			headline = " Replaced " + ui.Highlight.Sprint(result.ID) + " with a fresh credential"
		}
		spinner.FinalMSG = ui.Success.Sprint("✓") + headline + "\n" +
			"    credential: " + ui.Muted.Sprint(result.CredentialID) + "\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("tapvault get "+result.ID) + " to read it back"
		return nil
	},
}

// readValue acquires the secret value from stdin or an interactive prompt.
func readValue(id string) (string, error) {
	if setValueStdin {
		data, err := utils.ReadStdin()
		if err != nil {
			return "", err
		}
		value := strings.TrimSuffix(string(data), "\n")
		value = strings.TrimSuffix(value, "\r")
		return value, nil
	}

	value, err := utils.ReadSecretValue("Enter value for " + id + ": ")
	if err != nil {
		return "", err
	}
	return string(value), nil
}
