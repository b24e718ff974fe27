package main

import (
	"os"

	"github.com/tapvault/tapvault/cmd"
)

func main() {
	// Commands render their own failures to stderr; a nonzero exit is the
	// only signal main adds.
	if err := cmd.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
