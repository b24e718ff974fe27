// Package workflows provides high-level orchestration for tapvault commands.
//
// Workflows coordinate multiple operations across packages (configs, store,
// authenticator, crypto, audit) to implement complete user-facing features.
// Each workflow handles a single command's business logic, independent of
// CLI concerns like flag parsing, prompts, and output formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Calls the appropriate workflow function
//   - Formats the result for display
//
// Workflows handle everything else:
//   - Loading the installation configuration
//   - Validating prerequisites
//   - Performing the core operation
//   - Recording audit trail entries
//
// # Available Workflows
//
// Each command has a corresponding workflow:
//
//   - Init: Initializes the installation configuration
//   - Set: Enrolls a credential and stores an encrypted secret
//   - Get: Verifies the credential and decrypts a stored secret
//   - List: Lists stored secret metadata (no decryption)
//   - Delete: Removes a stored secret
//   - Clear: Empties the secret store
//   - Resolve: Runs the stdin/stdout resolution protocol
//   - Doctor: Runs installation health checks
//   - Log: Reads and filters the audit log
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching. Use errors.Is() to check for specific error conditions:
//
//	result, err := workflows.Get(ctx, opts)
//	if errors.Is(err, terrors.ErrSecretNotFound) {
//	    // Show user-friendly not-found message
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
// Cancelling it during an authenticator ceremony is treated as the user
// dismissing the prompt.
package workflows
