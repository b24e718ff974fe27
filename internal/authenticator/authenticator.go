package authenticator

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"

	terrors "github.com/tapvault/tapvault/internal/errors"
)

// Flag bits in the authenticator data flags byte.
const (
	FlagUserPresent  byte = 0x01
	FlagUserVerified byte = 0x04
	FlagAttestedData byte = 0x40
)

// authenticatorDataMinLen is rpIdHash (32) + flags (1) + signCount (4).
const authenticatorDataMinLen = 37

// Credential is the result of an enrollment ceremony: the identifier and
// public key the authenticator minted for one stored secret.
type Credential struct {
	// ID is the credential identifier, base64url without padding.
	ID string

	// PublicKey is the COSE-encoded public key. It doubles as the KDF salt,
	// so it is stored verbatim in the secret record.
	PublicKey []byte

	// RelyingPartyID is the domain the credential is scoped to.
	RelyingPartyID string

	// UserHandle is the per-record handle the credential was enrolled under.
	UserHandle []byte

	// AttestationData is the authenticator data from the enrollment
	// ceremony, with the attested credential data block included.
	AttestationData []byte
}

// Assertion is the result of a verification ceremony.
type Assertion struct {
	CredentialID      string
	AuthenticatorData []byte
	ClientDataJSON    []byte
	Signature         []byte
}

// EnrollmentRequest describes one enrollment ceremony.
type EnrollmentRequest struct {
	RelyingPartyID string
	UserHandle     []byte

	// UserName is shown by the device during the ceremony; typically the
	// secret's label.
	UserName string

	// Timeout bounds the ceremony. Zero means the context alone governs.
	Timeout time.Duration
}

// VerificationRequest describes one verification ceremony. The challenge
// must come fresh from crypto.RandomChallenge and is single-use.
type VerificationRequest struct {
	RelyingPartyID string
	CredentialID   string
	Challenge      []byte

	// Timeout bounds the ceremony. Zero means the context alone governs.
	Timeout time.Duration
}

// Gate abstracts the physical-authenticator boundary. Each call is one
// ceremony with no state carried between invocations: every decrypt
// requires a fresh user confirmation.
//
// Failure modes are the sentinel errors ErrUserCancelled,
// ErrDeviceUnavailable, ErrAuthenticatorTimeout, and ErrNotAllowed.
type Gate interface {
	// Enroll mints a new credential. Called exactly once per stored secret
	// at creation time.
	Enroll(ctx context.Context, req EnrollmentRequest) (*Credential, error)

	// Verify proves possession of an enrolled credential. Called exactly
	// once per decrypt attempt.
	Verify(ctx context.Context, req VerificationRequest) (*Assertion, error)
}

// clientData is the collected client data embedded in an assertion.
type clientData struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
}

// VerifyAssertion checks an assertion against the credential it should have
// been produced by: relying party hash, user presence flag, challenge
// binding, and the ECDSA signature over authenticatorData || SHA-256(clientDataJSON).
// Any mismatch is ErrNotAllowed; the caller must not decrypt after a failure.
func VerifyAssertion(credential *Credential, challenge []byte, assertion *Assertion) error {
	if credential == nil || assertion == nil {
		return fmt.Errorf("%w: missing credential or assertion", terrors.ErrNotAllowed)
	}
	if assertion.CredentialID != credential.ID {
		return fmt.Errorf("%w: assertion names a different credential", terrors.ErrNotAllowed)
	}
	if len(assertion.AuthenticatorData) < authenticatorDataMinLen {
		return fmt.Errorf("%w: authenticator data too short", terrors.ErrNotAllowed)
	}

	rpIDHash := sha256.Sum256([]byte(credential.RelyingPartyID))
	if !bytes.Equal(assertion.AuthenticatorData[:32], rpIDHash[:]) {
		return fmt.Errorf("%w: relying party mismatch", terrors.ErrNotAllowed)
	}

	flags := assertion.AuthenticatorData[32]
	if flags&FlagUserPresent == 0 {
		return fmt.Errorf("%w: user presence not asserted", terrors.ErrNotAllowed)
	}

	var client clientData
	if err := json.Unmarshal(assertion.ClientDataJSON, &client); err != nil {
		return fmt.Errorf("%w: malformed client data", terrors.ErrNotAllowed)
	}
	if client.Type != "webauthn.get" {
		return fmt.Errorf("%w: unexpected ceremony type", terrors.ErrNotAllowed)
	}
	if client.Challenge != base64.RawURLEncoding.EncodeToString(challenge) {
		return fmt.Errorf("%w: challenge mismatch", terrors.ErrNotAllowed)
	}

	publicKey, err := parseCOSEPublicKey(credential.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: %v", terrors.ErrNotAllowed, err)
	}

	clientDataHash := sha256.Sum256(assertion.ClientDataJSON)
	signed := append([]byte{}, assertion.AuthenticatorData...)
	signed = append(signed, clientDataHash[:]...)
	digest := sha256.Sum256(signed)

	if !ecdsa.VerifyASN1(publicKey, digest[:], assertion.Signature) {
		return fmt.Errorf("%w: signature does not verify", terrors.ErrNotAllowed)
	}

	return nil
}

// parseCOSEPublicKey decodes an ES256 COSE key into an ECDSA public key.
func parseCOSEPublicKey(coseKey []byte) (*ecdsa.PublicKey, error) {
	var keyMap map[int]interface{}
	if err := cbor.Unmarshal(coseKey, &keyMap); err != nil {
		return nil, fmt.Errorf("failed to decode COSE key: %w", err)
	}

	if kty, ok := coseInt(keyMap[1]); !ok || kty != 2 {
		return nil, fmt.Errorf("unsupported COSE key type")
	}
	if alg, ok := coseInt(keyMap[3]); !ok || alg != int64(webauthncose.AlgES256) {
		return nil, fmt.Errorf("unsupported COSE algorithm")
	}
	if crv, ok := coseInt(keyMap[-1]); !ok || crv != 1 {
		return nil, fmt.Errorf("unsupported COSE curve")
	}

	x, ok := keyMap[-2].([]byte)
	if !ok || len(x) == 0 {
		return nil, fmt.Errorf("COSE key missing x coordinate")
	}
	y, ok := keyMap[-3].([]byte)
	if !ok || len(y) == 0 {
		return nil, fmt.Errorf("COSE key missing y coordinate")
	}

	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}, nil
}

// coseInt normalizes CBOR-decoded integers, which arrive as uint64 when
// positive and int64 when negative.
func coseInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	}
	return 0, false
}
