// Package store persists secret records for tapvault.
//
// The store is a single UTF-8 JSON array of records, one file per
// installation. There is no partial write path: every mutation serializes
// the whole array and lands it with a temp-file-plus-rename, so a reader
// racing a writer sees either the previous or the next version of the
// file, never an interleaving. There is no cross-process lock; the last
// writer wins.
//
// Records pair a ciphertext with the credential enrollment that gates it.
// A record is "hardware-bound" when both the ciphertext and the credential
// public key are present; every other shape is invalid and is rejected by
// callers rather than interpreted as plaintext.
//
// The unique-id invariant is owned by mutating callers, not enforced here:
// a set targeting an existing id removes the old record before appending
// the replacement, because the credential enrollment is replaced with it.
package store
