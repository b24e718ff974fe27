package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	terrors "github.com/tapvault/tapvault/internal/errors"
	"github.com/tapvault/tapvault/internal/ui"
	"github.com/tapvault/tapvault/internal/workflows"

	"github.com/spf13/cobra"
)

var listJSON bool

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as a JSON array")
}

// resetListCommandState resets the list command's global state for testing.
func resetListCommandState() {
	listJSON = false
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored secrets",
	Long: `Lists metadata for every stored secret: id, label, creation time, and
whether the record is hardware-bound. Values stay encrypted; listing
never triggers a ceremony.

Examples:
  tapvault list
  tapvault list --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting list command")

		result, err := workflows.List(context.Background())
		if errors.Is(err, terrors.ErrNotInitialized) {
			fmt.Println(notInitializedMessage())
			return nil
		}
		if err != nil {
			return Logger.ErrorfAndReturn("failed to list secrets: %v", err)
		}

		if listJSON {
			data, err := json.MarshalIndent(result.Secrets, "", "  ")
			if err != nil {
				return Logger.ErrorfAndReturn("failed to marshal secrets: %v", err)
			}
			fmt.Println(string(data))
			return nil
		}

		if len(result.Secrets) == 0 {
			fmt.Println("No secrets stored.")
			fmt.Println(ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("tapvault set <id>") + " to store one")
			return nil
		}

		// Column widths follow the longest id and label.
		idWidth, labelWidth := len("ID"), len("LABEL")
		for _, secret := range result.Secrets {
			if len(secret.ID) > idWidth {
				idWidth = len(secret.ID)
			}
			if len(secret.Label) > labelWidth {
				labelWidth = len(secret.Label)
			}
		}

		fmt.Printf("%-*s  %-*s  %-19s  %s\n", idWidth, "ID", labelWidth, "LABEL", "CREATED", "BOUND")
		for _, secret := range result.Secrets {
			created := time.UnixMilli(secret.CreatedAt).UTC().Format("2006-01-02 15:04:05")
			bound := ui.Success.Sprint("yes")
			if !secret.HardwareBound {
				bound = ui.Error.Sprint("no")
			}
			fmt.Printf("%-*s  %-*s  %-19s  %s\n", idWidth, secret.ID, labelWidth, secret.Label, created, bound)
		}
		fmt.Printf("\n%d secret(s) in %s\n", len(result.Secrets), ui.Path.Sprint(result.StorePath))
		return nil
	},
}
