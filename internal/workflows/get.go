package workflows

import (
	"context"
	"fmt"

	"github.com/tapvault/tapvault/internal/audit"
	"github.com/tapvault/tapvault/internal/authenticator"
	"github.com/tapvault/tapvault/internal/configs"
	"github.com/tapvault/tapvault/internal/crypto"
	terrors "github.com/tapvault/tapvault/internal/errors"
	"github.com/tapvault/tapvault/internal/store"
)

// GetOptions configures the get workflow.
type GetOptions struct {
	// ID is the secret to decrypt.
	ID string
}

// GetResult contains the outcome of a get operation.
type GetResult struct {
	// ID is the secret's identifier.
	ID string

	// Label is the record's human-readable name.
	Label string

	// Value is the decrypted plaintext. It goes to the caller only; it is
	// never written back to storage or to any log.
	Value string

	// CredentialID identifies the credential that gated the decryption.
	CredentialID string
}

// Get verifies the secret's credential and decrypts its value.
//
// The workflow:
//  1. Looks up the record by id
//  2. Generates a fresh single-use challenge
//  3. Runs a verification ceremony (user confirms presence)
//  4. Checks the assertion, derives the key from the record's stored
//     credential material, and decrypts
//
// Returns ErrNotInitialized if no configuration exists.
// Returns ErrSecretNotFound if no record has the id.
// Returns ErrUnsupportedRecord if the record is not hardware-bound.
// Returns ErrUserCancelled if the user dismisses the ceremony.
// Returns ErrDecryptionFailed if the authentication tag does not verify.
func Get(ctx context.Context, opts GetOptions) (*GetResult, error) {
	config, err := configs.LoadConfig()
	if err != nil {
		return nil, err
	}

	st := store.New(configs.StorePath())
	records, err := st.Load()
	if err != nil {
		return nil, err
	}

	record, found := store.FindByID(records, opts.ID)
	if !found {
		return nil, fmt.Errorf("%w: %s", terrors.ErrSecretNotFound, opts.ID)
	}
	if !record.HardwareBound() {
		return nil, fmt.Errorf("%w: %s", terrors.ErrUnsupportedRecord, opts.ID)
	}

	gate, err := authenticator.New(config.Authenticator.Kind, configs.TokenStatePath(), config.PresenceDelay())
	if err != nil {
		return nil, err
	}

	challenge, err := crypto.RandomChallenge()
	if err != nil {
		return nil, err
	}

	assertion, err := gate.Verify(ctx, authenticator.VerificationRequest{
		RelyingPartyID: record.RelyingPartyID,
		CredentialID:   record.CredentialID,
		Challenge:      challenge,
		Timeout:        config.AuthenticatorTimeout(),
	})
	if err != nil {
		auditGetFailure(opts.ID)
		return nil, err
	}

	credential := &authenticator.Credential{
		ID:             record.CredentialID,
		PublicKey:      record.CredentialPublicKey,
		RelyingPartyID: record.RelyingPartyID,
		UserHandle:     record.UserHandle,
	}
	if err := authenticator.VerifyAssertion(credential, challenge, assertion); err != nil {
		auditGetFailure(opts.ID)
		return nil, err
	}

	key, err := crypto.DeriveKey(record.CredentialID, record.CredentialPublicKey)
	if err != nil {
		return nil, fmt.Errorf("deriving encryption key: %w", err)
	}

	plaintext, err := key.Decrypt(record.Ciphertext, record.Nonce)
	if err != nil {
		auditGetFailure(opts.ID)
		return nil, err
	}

	audit.Log(audit.Entry{
		Operation: "get",
		Outcome:   audit.OutcomeSuccess,
		SecretID:  opts.ID,
	})

	return &GetResult{
		ID:           record.ID,
		Label:        record.Label,
		Value:        string(plaintext),
		CredentialID: record.CredentialID,
	}, nil
}

// auditGetFailure records a denied or failed access attempt.
func auditGetFailure(id string) {
	audit.Log(audit.Entry{
		Operation: "get",
		Outcome:   audit.OutcomeFailure,
		SecretID:  id,
	})
}
