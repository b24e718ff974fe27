package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/tapvault/tapvault/internal/audit"
	"github.com/tapvault/tapvault/internal/authenticator"
	"github.com/tapvault/tapvault/internal/configs"
	"github.com/tapvault/tapvault/internal/crypto"
	terrors "github.com/tapvault/tapvault/internal/errors"
	"github.com/tapvault/tapvault/internal/store"
)

// SetOptions configures the set workflow.
type SetOptions struct {
	// ID is the secret's unique identifier.
	ID string

	// Label is a human-readable name shown in listings and during the
	// enrollment ceremony. Defaults to the id.
	Label string

	// Value is the plaintext to encrypt and store.
	Value string

	// Replace overwrites an existing record with the same id. The cmd layer
	// sets it after the user confirms.
	Replace bool
}

// SetResult contains the outcome of a set operation.
type SetResult struct {
	// ID is the stored secret's identifier.
	ID string

	// Label is the label the record was stored under.
	Label string

	// CredentialID identifies the credential enrolled for this secret.
	CredentialID string

	// Replaced indicates an existing record was removed first.
	Replaced bool

	// StorePath is where the record was persisted.
	StorePath string
}

// Set encrypts a value under a freshly enrolled credential and persists it.
//
// The workflow:
//  1. Enrolls a new credential with the authenticator (user confirms presence)
//  2. Derives the encryption key from the credential id and public key
//  3. Encrypts the value under a fresh random nonce
//  4. Removes any existing record with the same id, appends the new one,
//     and saves the whole store
//
// Replacement is explicit removal plus append, never update in place: the
// old record's enrollment is replaced along with its ciphertext.
//
// Returns ErrNotInitialized if no configuration exists.
// Returns ErrSecretExists if the id is taken and Replace is not set.
// Returns ErrUserCancelled if the user dismisses the enrollment ceremony.
// Returns ErrDeviceUnavailable if the authenticator cannot be reached.
func Set(ctx context.Context, opts SetOptions) (*SetResult, error) {
	if opts.ID == "" {
		return nil, fmt.Errorf("secret id is empty")
	}

	config, err := configs.LoadConfig()
	if err != nil {
		return nil, err
	}

	st := store.New(configs.StorePath())
	records, err := st.Load()
	if err != nil {
		return nil, err
	}

	replaced := false
	if _, exists := store.FindByID(records, opts.ID); exists {
		if !opts.Replace {
			return nil, fmt.Errorf("%w: %s", terrors.ErrSecretExists, opts.ID)
		}
		replaced = true
	}

	gate, err := authenticator.New(config.Authenticator.Kind, configs.TokenStatePath(), config.PresenceDelay())
	if err != nil {
		return nil, err
	}

	label := opts.Label
	if label == "" {
		label = opts.ID
	}

	credential, err := gate.Enroll(ctx, authenticator.EnrollmentRequest{
		RelyingPartyID: config.Installation.RelyingPartyID,
		UserHandle:     store.UserHandle(opts.ID),
		UserName:       label,
		Timeout:        config.AuthenticatorTimeout(),
	})
	if err != nil {
		return nil, err
	}

	key, err := crypto.DeriveKey(credential.ID, credential.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("deriving encryption key: %w", err)
	}

	ciphertext, nonce, err := key.Encrypt([]byte(opts.Value))
	if err != nil {
		return nil, err
	}

	// Replace, not update: the old enrollment goes with the old ciphertext.
	records, _ = store.RemoveByID(records, opts.ID)
	records = append(records, store.Record{
		ID:                  opts.ID,
		Label:               label,
		Ciphertext:          ciphertext,
		Nonce:               nonce,
		CreatedAt:           time.Now().UnixMilli(),
		RelyingPartyID:      config.Installation.RelyingPartyID,
		UserHandle:          store.UserHandle(opts.ID),
		CredentialID:        credential.ID,
		CredentialPublicKey: credential.PublicKey,
	})

	if err := st.Save(records); err != nil {
		return nil, err
	}

	audit.Log(audit.Entry{
		Operation:    "set",
		Outcome:      audit.OutcomeSuccess,
		SecretID:     opts.ID,
		CredentialID: credential.ID,
		Replaced:     replaced,
	})

	return &SetResult{
		ID:           opts.ID,
		Label:        label,
		CredentialID: credential.ID,
		Replaced:     replaced,
		StorePath:    st.Path(),
	}, nil
}
