package cmd

import (
	"context"
	"os"
	"time"

	"github.com/tapvault/tapvault/internal/utils"
	"github.com/tapvault/tapvault/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	resolveTimeout  time.Duration
	resolveProvider string

	// resolveExitFunc allows tests to capture the exit code instead of
	// terminating the test binary.
	resolveExitFunc = os.Exit
)

func init() {
	resolveCmd.Flags().DurationVar(&resolveTimeout, "timeout", 0, "whole-request deadline (default from config)")
	resolveCmd.Flags().StringVar(&resolveProvider, "provider", "", "provider identifier to answer for (default from config)")
}

// resetResolveCommandState resets the resolve command's global state for testing.
func resetResolveCommandState() {
	resolveTimeout = 0
	resolveProvider = ""
	resolveExitFunc = os.Exit
}

// SetResolveExitFunc overrides the exit behavior for testing.
func SetResolveExitFunc(f func(int)) {
	resolveExitFunc = f
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Answer a resolution request from stdin",
	Long: `Reads one JSON resolution request from stdin, decrypts each requested
secret behind its own hardware verification, and writes the JSON response
to stdout. Intended to be invoked by tooling, not by hand.

Stdout carries nothing but the response. Prompts and diagnostics go to
stderr. Per-id failures are reported inside the response and still exit
zero; only a rejected request exits nonzero.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting resolve command")

		if utils.IsTerminal() {
			Logger.WarnfUser("Reading the request from the terminal. Paste the JSON request and press Ctrl-D.")
		}

		result, err := workflows.Resolve(context.Background(), workflows.ResolveOptions{
			Provider: resolveProvider,
			Timeout:  resolveTimeout,
			Stdin:    cmd.InOrStdin(),
			Stdout:   cmd.OutOrStdout(),
			Logger:   Logger,
		})
		if err != nil {
			return Logger.ErrorfAndReturn("failed to run resolver: %v", err)
		}

		Logger.Debugf("Resolve finished: requested=%d resolved=%d failed=%d exit=%d",
			result.Requested, result.Resolved, result.Failed, result.ExitCode)

		if result.ExitCode != 0 {
			resolveExitFunc(result.ExitCode)
		}
		return nil
	},
}
