// Package errors provides typed error values for the tapvault application.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. This makes
// error handling more robust and refactoring-safe.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Store errors: persisted store issues (ErrStoreCorrupt, ErrSecretNotFound)
//   - Crypto errors: encryption/decryption failures (ErrDecryptionFailed)
//   - Authenticator errors: device boundary failures (ErrUserCancelled, ErrNotAllowed)
//   - Resolver errors: whole-request rejections (ErrUnsupportedVersion)
//   - Configuration errors: installation state issues (ErrNotInitialized)
//
// # Usage
//
// Return errors from internal packages:
//
//	if record == nil {
//	    return nil, errors.ErrSecretNotFound
//	}
//
// Handle errors in the CLI layer:
//
//	result, err := workflows.Get(ctx, opts)
//	if errors.Is(err, terrors.ErrSecretNotFound) {
//	    // Show user-friendly message
//	}
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("resolving %q: %w", id, errors.ErrDecryptionFailed)
package errors
