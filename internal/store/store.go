package store

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	terrors "github.com/tapvault/tapvault/internal/errors"
)

// Record is the unit of persistence: one stored secret with the credential
// enrollment that gates it. Ciphertext, nonce, userHandle, and the public
// key travel as base64 in the JSON encoding.
type Record struct {
	ID                  string `json:"id"`
	Label               string `json:"label"`
	Ciphertext          []byte `json:"ciphertext,omitempty"`
	Nonce               []byte `json:"nonce,omitempty"`
	CreatedAt           int64  `json:"createdAt"`
	RelyingPartyID      string `json:"relyingPartyId"`
	UserHandle          []byte `json:"userHandle,omitempty"`
	CredentialID        string `json:"credentialId,omitempty"`
	CredentialPublicKey []byte `json:"credentialPublicKey,omitempty"`
}

// HardwareBound reports whether the record carries both ciphertext and
// credential public key. Only hardware-bound records can be resolved;
// any other shape is rejected rather than treated as plaintext.
func (r *Record) HardwareBound() bool {
	return len(r.Ciphertext) > 0 && len(r.CredentialPublicKey) > 0
}

// Store reads and writes the secret store file. The path is threaded in
// explicitly; nothing here reads ambient configuration. The file is read
// fresh on every operation and written as a whole on every mutation.
type Store struct {
	path string
}

// New returns a Store backed by the file at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the store's file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads and deserializes the whole store. An absent store is not an
// error and yields an empty sequence. A store that is not a well-formed
// record array fails with ErrStoreCorrupt.
func (s *Store) Load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secret store: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", terrors.ErrStoreCorrupt, err)
	}

	return records, nil
}

// Save serializes and replaces the whole store. The write goes to a temp
// file in the store directory first and lands via rename, so a concurrent
// reader observes either the previous or the next version, never a mix.
func (s *Store) Save(records []Record) error {
	if records == nil {
		records = []Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize secret store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".secrets-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set store permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write secret store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write secret store: %w", err)
	}

	// Atomic replace via rename.
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace secret store: %w", err)
	}

	return nil
}

// FindByID returns the record with the given id, if present.
func FindByID(records []Record, id string) (*Record, bool) {
	for i := range records {
		if records[i].ID == id {
			return &records[i], true
		}
	}
	return nil, false
}

// RemoveByID returns records without the record matching id, and whether
// a record was removed.
func RemoveByID(records []Record, id string) ([]Record, bool) {
	kept := make([]Record, 0, len(records))
	removed := false
	for _, record := range records {
		if record.ID == id {
			removed = true
			continue
		}
		kept = append(kept, record)
	}
	return kept, removed
}

// UserHandle derives the per-record user handle from the secret id. The
// derivation is deterministic so re-enrolling the same id yields the same
// handle.
func UserHandle(id string) []byte {
	sum := sha256.Sum256([]byte("tapvault/user-handle/v1:" + id))
	return sum[:]
}
