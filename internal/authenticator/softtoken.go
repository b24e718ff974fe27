package authenticator

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-webauthn/webauthn/protocol/webauthncbor"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/google/uuid"

	terrors "github.com/tapvault/tapvault/internal/errors"
)

// softTokenAAGUID identifies the built-in software token model.
var softTokenAAGUID = uuid.MustParse("f7b4e0d1-3c52-4a6e-9b0a-8d2c5f71e384")

// KindSoftToken is the configuration name of the software token gate.
const KindSoftToken = "softtoken"

const credentialIDSize = 16

// New returns the Gate implementation for the configured authenticator
// kind. Only the software token is built in; a hardware transport would
// register a new kind here.
func New(kind, statePath string, presenceDelay time.Duration) (Gate, error) {
	switch kind {
	case KindSoftToken:
		return NewSoftToken(statePath, presenceDelay), nil
	}
	return nil, fmt.Errorf("unknown authenticator kind %q", kind)
}

// SoftToken is a software authenticator behind the Gate interface. It keeps
// one ECDSA P-256 key per credential in a state file so that a later,
// separate process (the resolver) can still produce assertions. A presence
// delay simulates the wait for a touch; cancelling the context during the
// wait is treated as the user dismissing the ceremony.
type SoftToken struct {
	statePath     string
	presenceDelay time.Duration
}

// NewSoftToken returns a SoftToken persisting its credentials at statePath.
func NewSoftToken(statePath string, presenceDelay time.Duration) *SoftToken {
	return &SoftToken{statePath: statePath, presenceDelay: presenceDelay}
}

type tokenState struct {
	Version     int                        `json:"version"`
	Credentials map[string]tokenCredential `json:"credentials"`
}

type tokenCredential struct {
	// PrivateKey is the PKCS#8-encoded P-256 signing key.
	PrivateKey     []byte `json:"privateKey"`
	RelyingPartyID string `json:"relyingPartyId"`
	UserHandle     []byte `json:"userHandle"`
	UserName       string `json:"userName"`
	SignCount      uint32 `json:"signCount"`
	CreatedAt      int64  `json:"createdAt"`
}

// Enroll mints a new credential under the requested relying party.
func (t *SoftToken) Enroll(ctx context.Context, req EnrollmentRequest) (*Credential, error) {
	if req.RelyingPartyID == "" {
		return nil, fmt.Errorf("relying party id is empty")
	}

	state, err := t.loadState()
	if err != nil {
		return nil, err
	}

	if err := t.waitForPresence(ctx, req.Timeout); err != nil {
		return nil, err
	}

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: key generation failed: %v", terrors.ErrDeviceUnavailable, err)
	}

	rawID := make([]byte, credentialIDSize)
	if _, err := io.ReadFull(rand.Reader, rawID); err != nil {
		return nil, fmt.Errorf("%w: %v", terrors.ErrDeviceUnavailable, err)
	}
	credentialID := base64.RawURLEncoding.EncodeToString(rawID)

	keyDER, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", terrors.ErrDeviceUnavailable, err)
	}

	cosePublicKey, err := encodeCOSEPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", terrors.ErrDeviceUnavailable, err)
	}

	state.Credentials[credentialID] = tokenCredential{
		PrivateKey:     keyDER,
		RelyingPartyID: req.RelyingPartyID,
		UserHandle:     req.UserHandle,
		UserName:       req.UserName,
		SignCount:      0,
		CreatedAt:      time.Now().UnixMilli(),
	}

	if err := t.saveState(state); err != nil {
		return nil, err
	}

	attestationData := buildAuthenticatorData(
		req.RelyingPartyID,
		FlagUserPresent|FlagUserVerified|FlagAttestedData,
		0, rawID, cosePublicKey)

	return &Credential{
		ID:              credentialID,
		PublicKey:       cosePublicKey,
		RelyingPartyID:  req.RelyingPartyID,
		UserHandle:      req.UserHandle,
		AttestationData: attestationData,
	}, nil
}

// Verify produces an assertion over the caller's challenge with the
// credential's signing key, bumping the sign counter.
func (t *SoftToken) Verify(ctx context.Context, req VerificationRequest) (*Assertion, error) {
	if len(req.Challenge) == 0 {
		return nil, fmt.Errorf("challenge is empty")
	}

	state, err := t.loadState()
	if err != nil {
		return nil, err
	}

	stored, ok := state.Credentials[req.CredentialID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown credential", terrors.ErrNotAllowed)
	}
	if req.RelyingPartyID != "" && req.RelyingPartyID != stored.RelyingPartyID {
		return nil, fmt.Errorf("%w: relying party mismatch", terrors.ErrNotAllowed)
	}

	if err := t.waitForPresence(ctx, req.Timeout); err != nil {
		return nil, err
	}

	key, err := x509.ParsePKCS8PrivateKey(stored.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: credential key unreadable: %v", terrors.ErrDeviceUnavailable, err)
	}
	privateKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: credential key has unexpected type", terrors.ErrDeviceUnavailable)
	}

	stored.SignCount++
	state.Credentials[req.CredentialID] = stored

	authData := buildAuthenticatorData(stored.RelyingPartyID, FlagUserPresent|FlagUserVerified, stored.SignCount, nil, nil)

	clientDataJSON, err := json.Marshal(clientData{
		Type:      "webauthn.get",
		Challenge: base64.RawURLEncoding.EncodeToString(req.Challenge),
		Origin:    "https://" + stored.RelyingPartyID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", terrors.ErrDeviceUnavailable, err)
	}

	clientDataHash := sha256.Sum256(clientDataJSON)
	signed := append([]byte{}, authData...)
	signed = append(signed, clientDataHash[:]...)
	digest := sha256.Sum256(signed)

	signature, err := ecdsa.SignASN1(rand.Reader, privateKey, digest[:])
	if err != nil {
		return nil, fmt.Errorf("%w: signing failed: %v", terrors.ErrDeviceUnavailable, err)
	}

	if err := t.saveState(state); err != nil {
		return nil, err
	}

	return &Assertion{
		CredentialID:      req.CredentialID,
		AuthenticatorData: authData,
		ClientDataJSON:    clientDataJSON,
		Signature:         signature,
	}, nil
}

// CredentialIDs lists every credential id held in the token state, sorted.
// Doctor uses it to cross-check the secret store against the token.
func (t *SoftToken) CredentialIDs() ([]string, error) {
	state, err := t.loadState()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(state.Credentials))
	for id := range state.Credentials {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// waitForPresence simulates waiting for the user to touch the token.
func (t *SoftToken) waitForPresence(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if t.presenceDelay <= 0 {
		return ceremonyError(ctx)
	}

	timer := time.NewTimer(t.presenceDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ceremonyError(ctx)
	}
}

func ceremonyError(ctx context.Context) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return terrors.ErrAuthenticatorTimeout
	case ctx.Err() != nil:
		return terrors.ErrUserCancelled
	}
	return nil
}

func (t *SoftToken) loadState() (*tokenState, error) {
	state := &tokenState{Version: 1, Credentials: make(map[string]tokenCredential)}

	data, err := os.ReadFile(t.statePath)
	if os.IsNotExist(err) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: token state unreadable: %v", terrors.ErrDeviceUnavailable, err)
	}

	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("%w: token state corrupt: %v", terrors.ErrDeviceUnavailable, err)
	}
	if state.Credentials == nil {
		state.Credentials = make(map[string]tokenCredential)
	}

	return state, nil
}

func (t *SoftToken) saveState(state *tokenState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", terrors.ErrDeviceUnavailable, err)
	}

	dir := filepath.Dir(t.statePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: %v", terrors.ErrDeviceUnavailable, err)
	}

	tmp, err := os.CreateTemp(dir, ".softtoken-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", terrors.ErrDeviceUnavailable, err)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", terrors.ErrDeviceUnavailable, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", terrors.ErrDeviceUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", terrors.ErrDeviceUnavailable, err)
	}

	if err := os.Rename(tmpPath, t.statePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", terrors.ErrDeviceUnavailable, err)
	}

	return nil
}

// buildAuthenticatorData assembles the WebAuthn authenticator data layout:
// rpIdHash (32) || flags (1) || signCount (4, big-endian), then attested
// credential data (AAGUID || credIDLen || credID || COSE key) when the
// AT flag is set.
func buildAuthenticatorData(rpID string, flags byte, signCount uint32, rawCredentialID, cosePublicKey []byte) []byte {
	var buf bytes.Buffer

	rpIDHash := sha256.Sum256([]byte(rpID))
	buf.Write(rpIDHash[:])
	buf.WriteByte(flags)

	var count [4]byte
	binary.BigEndian.PutUint32(count[:], signCount)
	buf.Write(count[:])

	if flags&FlagAttestedData != 0 {
		buf.Write(softTokenAAGUID[:])

		var idLen [2]byte
		binary.BigEndian.PutUint16(idLen[:], uint16(len(rawCredentialID)))
		buf.Write(idLen[:])
		buf.Write(rawCredentialID)
		buf.Write(cosePublicKey)
	}

	return buf.Bytes()
}

// encodeCOSEPublicKey encodes an ECDSA P-256 public key as an ES256 COSE key.
func encodeCOSEPublicKey(publicKey *ecdsa.PublicKey) ([]byte, error) {
	coseKey := map[int]interface{}{
		1:  2,                          // kty: EC2
		3:  int(webauthncose.AlgES256), // alg: ES256
		-1: 1,                          // crv: P-256
		-2: publicKey.X.Bytes(),        // x coordinate
		-3: publicKey.Y.Bytes(),        // y coordinate
	}

	return webauthncbor.Marshal(coseKey)
}
