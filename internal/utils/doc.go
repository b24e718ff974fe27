// Package utils provides shared utility functions for the tapvault CLI.
//
// # I/O Utilities
//
// Functions for reading from stdin:
//   - ReadStdin: reads all data from standard input
//
// # Terminal Utilities
//
// Functions for terminal detection and interaction:
//   - ReadSecretValue: prompts for a value with echoing disabled
//   - IsTerminal: checks if stdin is a terminal
package utils
