package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	terrors "github.com/tapvault/tapvault/internal/errors"
)

const (
	// KeyDerivationIterations is the PBKDF2 iteration count. Changing it
	// makes every previously stored ciphertext underivable.
	KeyDerivationIterations = 100000

	// NonceSize is the AES-GCM nonce length in bytes.
	NonceSize = 12

	// ChallengeSize is the assertion challenge length in bytes.
	ChallengeSize = 32

	keySize = 32 // AES-256
)

// EncryptionKey is a derived symmetric key. It wraps the sealed AEAD state
// and never exposes the raw key bytes; it must not outlive the operation
// it was derived for.
type EncryptionKey struct {
	aead cipher.AEAD
}

// DeriveKey derives the encryption key for a credential. The input key
// material is the UTF-8 bytes of credentialID followed by the raw public
// key bytes, salted with the public key itself. The derivation takes no
// random input: the same credential always yields the same key, which is
// what lets a stored ciphertext be decrypted later.
func DeriveKey(credentialID string, credentialPublicKey []byte) (*EncryptionKey, error) {
	if credentialID == "" {
		return nil, fmt.Errorf("credential id is empty")
	}
	if len(credentialPublicKey) == 0 {
		return nil, fmt.Errorf("credential public key is empty")
	}

	ikm := make([]byte, 0, len(credentialID)+len(credentialPublicKey))
	ikm = append(ikm, credentialID...)
	ikm = append(ikm, credentialPublicKey...)

	keyBytes := pbkdf2.Key(ikm, credentialPublicKey, KeyDerivationIterations, keySize, sha256.New)

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AEAD: %w", err)
	}

	return &EncryptionKey{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce. The nonce is returned
// alongside the ciphertext and must be stored with it; it is never reused.
func (k *EncryptionKey) Encrypt(plaintext []byte) (ciphertext, nonce []byte, err error) {
	nonce, err = RandomNonce()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", terrors.ErrEncryptionFailed, err)
	}

	ciphertext = k.aead.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Decrypt opens ciphertext with the given nonce. Every failure surfaces as
// ErrDecryptionFailed: a wrong credential, a corrupted record, and deliberate
// tampering are indistinguishable to the caller.
func (k *EncryptionKey) Decrypt(ciphertext, nonce []byte) ([]byte, error) {
	if len(nonce) != k.aead.NonceSize() {
		return nil, terrors.ErrDecryptionFailed
	}

	plaintext, err := k.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, terrors.ErrDecryptionFailed
	}

	return plaintext, nil
}

// RandomNonce returns a fresh cryptographically random 96-bit nonce.
func RandomNonce() ([]byte, error) {
	return randomBytes(NonceSize)
}

// RandomChallenge returns a fresh cryptographically random 32-byte challenge.
// A challenge is single-use: generate a new one for every assertion request.
func RandomChallenge() ([]byte, error) {
	return randomBytes(ChallengeSize)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}
