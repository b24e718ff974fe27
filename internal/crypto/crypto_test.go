package crypto

import (
	"bytes"
	"errors"
	"testing"

	terrors "github.com/tapvault/tapvault/internal/errors"
)

func testKey(t *testing.T) *EncryptionKey {
	t.Helper()
	key, err := DeriveKey("test-credential-id", []byte("test-public-key-material"))
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	return key
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey(t)

	tests := []struct {
		name      string
		plaintext string
	}{
		{"simple value", "my-secret-value"},
		{"empty value", ""},
		{"unicode value", "pässwörd-ünïcode-🔑"},
		{"long value", string(bytes.Repeat([]byte("a"), 64*1024))},
		{"binary-looking value", "\x00\x01\x02\xff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, nonce, err := key.Encrypt([]byte(tt.plaintext))
			if err != nil {
				t.Fatalf("Encrypt failed: %v", err)
			}

			if len(nonce) != NonceSize {
				t.Fatalf("Expected %d-byte nonce, got %d", NonceSize, len(nonce))
			}

			plaintext, err := key.Decrypt(ciphertext, nonce)
			if err != nil {
				t.Fatalf("Decrypt failed: %v", err)
			}

			if string(plaintext) != tt.plaintext {
				t.Errorf("Round-trip mismatch: got %q, want %q", plaintext, tt.plaintext)
			}
		})
	}
}

func TestDeriveKeyDeterminism(t *testing.T) {
	// Two independent derivations from the same credential material must
	// interoperate: that is what makes stored records decryptable later.
	first, err := DeriveKey("credential-a", []byte("public-key-a"))
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}

	ciphertext, nonce, err := first.Encrypt([]byte("stable value"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	second, err := DeriveKey("credential-a", []byte("public-key-a"))
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}

	plaintext, err := second.Decrypt(ciphertext, nonce)
	if err != nil {
		t.Fatalf("Decrypt with re-derived key failed: %v", err)
	}

	if string(plaintext) != "stable value" {
		t.Errorf("Expected %q, got %q", "stable value", plaintext)
	}
}

func TestDeriveKeyDistinctCredentials(t *testing.T) {
	keyA, err := DeriveKey("credential-a", []byte("public-key-a"))
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}

	ciphertext, nonce, err := keyA.Encrypt([]byte("bound to a"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	tests := []struct {
		name         string
		credentialID string
		publicKey    []byte
	}{
		{"different credential id", "credential-b", []byte("public-key-a")},
		{"different public key", "credential-a", []byte("public-key-b")},
		{"swapped material", "public-key-a", []byte("credential-a")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrong, err := DeriveKey(tt.credentialID, tt.publicKey)
			if err != nil {
				t.Fatalf("DeriveKey failed: %v", err)
			}

			if _, err := wrong.Decrypt(ciphertext, nonce); !errors.Is(err, terrors.ErrDecryptionFailed) {
				t.Errorf("Expected ErrDecryptionFailed with wrong key, got %v", err)
			}
		})
	}
}

func TestDeriveKeyEmptyMaterial(t *testing.T) {
	if _, err := DeriveKey("", []byte("public-key")); err == nil {
		t.Error("Expected error for empty credential id")
	}
	if _, err := DeriveKey("credential", nil); err == nil {
		t.Error("Expected error for empty public key")
	}
}

func TestTamperDetection(t *testing.T) {
	key := testKey(t)

	ciphertext, nonce, err := key.Encrypt([]byte("integrity matters"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	t.Run("ciphertext bit flips", func(t *testing.T) {
		for i := range ciphertext {
			for bit := 0; bit < 8; bit++ {
				tampered := make([]byte, len(ciphertext))
				copy(tampered, ciphertext)
				tampered[i] ^= 1 << bit

				if _, err := key.Decrypt(tampered, nonce); !errors.Is(err, terrors.ErrDecryptionFailed) {
					t.Fatalf("Flipping ciphertext byte %d bit %d: expected ErrDecryptionFailed, got %v", i, bit, err)
				}
			}
		}
	})

	t.Run("nonce bit flips", func(t *testing.T) {
		for i := range nonce {
			for bit := 0; bit < 8; bit++ {
				tampered := make([]byte, len(nonce))
				copy(tampered, nonce)
				tampered[i] ^= 1 << bit

				if _, err := key.Decrypt(ciphertext, tampered); !errors.Is(err, terrors.ErrDecryptionFailed) {
					t.Fatalf("Flipping nonce byte %d bit %d: expected ErrDecryptionFailed, got %v", i, bit, err)
				}
			}
		}
	})

	t.Run("truncated ciphertext", func(t *testing.T) {
		if _, err := key.Decrypt(ciphertext[:4], nonce); !errors.Is(err, terrors.ErrDecryptionFailed) {
			t.Errorf("Expected ErrDecryptionFailed for truncated ciphertext, got %v", err)
		}
	})

	t.Run("wrong nonce length", func(t *testing.T) {
		if _, err := key.Decrypt(ciphertext, nonce[:8]); !errors.Is(err, terrors.ErrDecryptionFailed) {
			t.Errorf("Expected ErrDecryptionFailed for short nonce, got %v", err)
		}
	})
}

func TestNonceUniqueness(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 10k-encryption nonce sweep in short mode")
	}

	key := testKey(t)
	seen := make(map[string]struct{}, 10000)

	for i := 0; i < 10000; i++ {
		_, nonce, err := key.Encrypt([]byte("same plaintext every time"))
		if err != nil {
			t.Fatalf("Encrypt %d failed: %v", i, err)
		}

		if _, dup := seen[string(nonce)]; dup {
			t.Fatalf("Nonce repeated after %d encryptions", i)
		}
		seen[string(nonce)] = struct{}{}
	}
}

func TestRandomChallenge(t *testing.T) {
	first, err := RandomChallenge()
	if err != nil {
		t.Fatalf("RandomChallenge failed: %v", err)
	}
	if len(first) != ChallengeSize {
		t.Fatalf("Expected %d-byte challenge, got %d", ChallengeSize, len(first))
	}

	second, err := RandomChallenge()
	if err != nil {
		t.Fatalf("RandomChallenge failed: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Error("Two challenges should not be equal")
	}
}
