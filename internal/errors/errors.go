package errors

import "errors"

// Store errors indicate issues with the persisted secret store.
var (
	// ErrStoreCorrupt indicates the secret store exists but could not be parsed.
	ErrStoreCorrupt = errors.New("secret store is corrupt")

	// ErrSecretNotFound indicates no stored secret matches the requested id.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrSecretExists indicates a stored secret with this id already exists.
	ErrSecretExists = errors.New("secret already exists")

	// ErrUnsupportedRecord indicates a stored record is not hardware-bound
	// and cannot be resolved.
	ErrUnsupportedRecord = errors.New("record is not hardware-bound")
)

// Cryptographic errors indicate failures during encryption or decryption.
var (
	// ErrEncryptionFailed indicates the encryption primitive failed.
	ErrEncryptionFailed = errors.New("encryption failed")

	// ErrDecryptionFailed indicates the authentication tag did not verify.
	// Wrong credential, corrupted data, and tampering all surface as this
	// one error.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Authenticator errors indicate failures at the physical-authenticator boundary.
var (
	// ErrUserCancelled indicates the user dismissed the authenticator ceremony.
	ErrUserCancelled = errors.New("user cancelled the authenticator ceremony")

	// ErrDeviceUnavailable indicates no authenticator device could be reached.
	ErrDeviceUnavailable = errors.New("authenticator device unavailable")

	// ErrAuthenticatorTimeout indicates the device did not respond within the deadline.
	ErrAuthenticatorTimeout = errors.New("authenticator timed out")

	// ErrNotAllowed indicates the device refused the operation, typically a
	// credential mismatch or a failed assertion check.
	ErrNotAllowed = errors.New("authenticator refused the credential")
)

// Resolver errors indicate a request that must be rejected as a whole.
var (
	// ErrUnsupportedVersion indicates the request named a protocol version
	// this resolver does not speak.
	ErrUnsupportedVersion = errors.New("unsupported protocol version")

	// ErrProviderMismatch indicates the request was addressed to a different provider.
	ErrProviderMismatch = errors.New("provider mismatch")

	// ErrMalformedRequest indicates the request was not parseable or named no ids.
	ErrMalformedRequest = errors.New("malformed request")
)

// Configuration errors indicate issues with the installation setup.
var (
	// ErrNotInitialized indicates tapvault init has not been run.
	ErrNotInitialized = errors.New("installation has not been initialized")

	// ErrAlreadyInitialized indicates the installation is already set up.
	ErrAlreadyInitialized = errors.New("installation has already been initialized")

	// ErrInvalidConfig indicates the configuration file is malformed or corrupt.
	ErrInvalidConfig = errors.New("configuration is invalid")

	// ErrInvalidDateFormat indicates a date filter was not in YYYY-MM-DD form.
	ErrInvalidDateFormat = errors.New("invalid date format")

	// ErrNoAuditLog indicates no audit log has been written yet.
	ErrNoAuditLog = errors.New("no audit log exists yet")
)
