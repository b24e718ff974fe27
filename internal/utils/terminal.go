package utils

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// ReadSecretValue prompts the user for a secret value without echoing input.
// The prompt goes to stderr so stdout stays clean for command output.
// Returns an error if stdin is not a terminal.
func ReadSecretValue(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())

	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("cannot prompt for a value: stdin is not a terminal (hint: use --value-stdin to pipe the value)")
	}

	fmt.Fprint(os.Stderr, prompt)
	value, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr) // Add newline after hidden input

	if err != nil {
		return nil, fmt.Errorf("failed to read value: %w", err)
	}

	return value, nil
}

// IsTerminal returns true if stdin is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
