// Package authenticator abstracts the physical-authentication step that
// gates every secret.
//
// The Gate interface covers the two ceremonies: Enroll mints a credential
// for a new secret, Verify proves possession of it before a decrypt. Each
// call is one self-contained ceremony, AwaitingUserPresence through
// Confirmed, Cancelled, or TimedOut, with no state shared between calls.
// There is no "already verified this session": every decrypt prompts again.
//
// # Software Token
//
// SoftToken is the built-in Gate. It behaves like a WebAuthn authenticator
// with the transport removed: one ECDSA P-256 key per credential, COSE key
// encoding, the standard authenticator-data layout, and ASN.1 DER ECDSA
// assertions over authenticatorData || SHA-256(clientDataJSON). Keys and
// sign counters live in a 0600 state file so the short-lived resolver
// process can assert credentials enrolled by an earlier management
// process. A configurable presence delay stands in for the touch; Ctrl-C
// during the wait maps to ErrUserCancelled and a missed deadline to
// ErrAuthenticatorTimeout.
//
// A transport-backed Gate (USB/NFC/BLE) would slot in behind the same
// interface without touching callers.
//
// # Assertion Checking
//
// VerifyAssertion is the relying-party side of Verify: it rebinds the
// assertion to the stored credential by checking the relying party hash,
// the user presence flag, the challenge echoed in the client data, and the
// signature against the record's stored COSE public key. Decryption must
// not proceed when it fails.
package authenticator
