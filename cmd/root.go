// Package cmd implements the tapvault command tree.
package cmd

import (
	logger "github.com/tapvault/tapvault/internal/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version is the tapvault release version.
const Version = "0.1.0"

var (
	verbose bool
	debug   bool
	Logger  logger.Logger

	RootCmd = &cobra.Command{
		Use:     "tapvault",
		Version: Version,
		Short:   "Hardware-bound secret storage and resolution",
		Long: `Tapvault stores secret values encrypted under keys that only exist while
a hardware-backed credential ceremony completes. Reading a secret back
always requires a fresh user-presence check on the authenticator.

Secrets are managed with set, get, list, delete, and clear. Host
applications resolve secrets programmatically through 'tapvault resolve',
which speaks JSON over stdin/stdout.

Run 'tapvault init' once per user before storing secrets.`,
		// Every command renders its own failures; stdout must stay
		// clean for get and resolve output.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing tapvault with verbose=%t, debug=%t", verbose, debug)
		},
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(setCmd)
	RootCmd.AddCommand(getCmd)
	RootCmd.AddCommand(listCmd)
	RootCmd.AddCommand(deleteCmd)
	RootCmd.AddCommand(clearCmd)
	RootCmd.AddCommand(resolveCmd)
	RootCmd.AddCommand(doctorCmd)
	RootCmd.AddCommand(logCmd)
	RootCmd.AddCommand(configCmd)
}

// Helper functions for testing

// GetRootCmd returns the RootCmd for testing.
func GetRootCmd() *cobra.Command {
	return RootCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	resetInitCommandState()
	resetSetCommandState()
	resetGetCommandState()
	resetListCommandState()
	resetDeleteCommandState()
	resetClearCommandState()
	resetResolveCommandState()
	resetDoctorCommandState()
	resetLogCommandState()
	resetConfigCommandState()
	resetFlagState(RootCmd)
	// Restore default streams in case a test redirected them.
	RootCmd.SetIn(nil)
	RootCmd.SetOut(nil)
	RootCmd.SetErr(nil)
}

// resetFlagState clears pflag Changed markers so one test's flags do not
// leak into the next Execute call.
func resetFlagState(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
	})
	cmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
	})
	for _, sub := range cmd.Commands() {
		resetFlagState(sub)
	}
}

// SetVerbose sets the verbose flag for testing.
func SetVerbose(v bool) {
	verbose = v
}

// SetDebug sets the debug flag for testing.
func SetDebug(d bool) {
	debug = d
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
