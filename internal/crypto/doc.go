// Package crypto provides key derivation and authenticated encryption for tapvault.
//
// This package is the encryption engine: it turns credential material into
// a symmetric key and seals or opens individual secret values with it.
//
// # Key Derivation
//
// Keys are derived, never stored. DeriveKey runs PBKDF2 (SHA-256, 100,000
// iterations) over the concatenation of the credential id and the raw
// credential public key, salted with the public key:
//
//	key = PBKDF2(credentialID || publicKey, salt=publicKey, 100000, SHA-256)
//
// The public key therefore acts as a KDF salt, not merely a verification
// artifact. Derivation is fully deterministic; decrypting a record depends
// on re-deriving the exact key used at write time from the record's own
// stored fields.
//
// # Encryption Envelope
//
// Values are sealed with AES-256-GCM and no associated data. Every Encrypt
// call draws a fresh random 96-bit nonce, so encrypting the same value twice
// produces different ciphertext. The nonce is stored beside the ciphertext
// in the record.
//
// Decrypt reports every failure as ErrDecryptionFailed, whether the cause
// was a wrong credential, a corrupted record, or tampering. Collapsing the
// causes denies an offline attacker a tamper-vs-wrong-key oracle.
//
// # Randomness
//
// RandomNonce and RandomChallenge read from crypto/rand. Challenges are
// 32 bytes and single-use: the resolver generates a new one for every
// assertion ceremony to resist replay.
package crypto
