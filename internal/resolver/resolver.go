package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tapvault/tapvault/internal/authenticator"
	"github.com/tapvault/tapvault/internal/crypto"
	terrors "github.com/tapvault/tapvault/internal/errors"
	logger "github.com/tapvault/tapvault/internal/logging"
	"github.com/tapvault/tapvault/internal/store"
)

// ProtocolVersion is the only request version this resolver accepts.
const ProtocolVersion = 1

// SystemKey is the reserved errors-map key for whole-request failures.
// Secret ids must never collide with it.
const SystemKey = "_system"

// Per-identifier error codes. User/device-originated codes mark failures
// the caller may retry by re-invoking; data-originated codes are permanent.
const (
	CodeKeyNotFound       = "KeyNotFound"
	CodeUnsupportedRecord = "UnsupportedRecord"
	CodeUserCancelled     = "UserCancelled"
	CodeTimeout           = "Timeout"
	CodeDeviceUnavailable = "DeviceUnavailable"
	CodeNotAllowed        = "NotAllowed"
	CodeDecryptionFailed  = "DecryptionFailed"
)

// Whole-request error codes, reported under SystemKey.
const (
	CodeUnsupportedVersion = "UnsupportedVersion"
	CodeProviderMismatch   = "ProviderMismatch"
	CodeBadRequest         = "BadRequest"
	CodeStoreCorrupt       = "StoreCorrupt"
	CodeInternal           = "Internal"
)

// Request is one batched resolution request, read from stdin as UTF-8 JSON.
type Request struct {
	ProtocolVersion int      `json:"protocolVersion"`
	Provider        string   `json:"provider"`
	IDs             []string `json:"ids"`
}

// Error is one entry in the response's errors map. Code comes from the
// fixed vocabulary above; Message is human-readable and never carries
// internal detail or key material.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Retryable reports whether the failure originated with the user or the
// device rather than the stored data. Retryable failures may succeed on a
// fresh invocation; the rest should not be retried blindly.
func (e Error) Retryable() bool {
	switch e.Code {
	case CodeUserCancelled, CodeTimeout, CodeDeviceUnavailable:
		return true
	}
	return false
}

// Response is the resolver's single reply, written to stdout as UTF-8 JSON.
// Every requested id appears in exactly one of Values or Errors. The fatal
// path reuses this shape with Errors holding only SystemKey, so callers
// parse both paths the same way.
type Response struct {
	ProtocolVersion int               `json:"protocolVersion"`
	Provider        string            `json:"provider"`
	Values          map[string]string `json:"values"`
	Errors          map[string]Error  `json:"errors"`
}

// Resolver resolves one request against a secret store, gating each value
// behind a fresh authenticator ceremony.
type Resolver struct {
	// Provider is the identifier this resolver answers for. Requests
	// addressed to any other provider are rejected whole.
	Provider string

	Store  *store.Store
	Gate   authenticator.Gate
	Logger logger.Logger

	// Timeout bounds the whole request. Once exceeded, every unresolved id
	// is reported as Timeout so the response still covers all of them.
	// Zero means no deadline.
	Timeout time.Duration

	// AuthenticatorTimeout bounds each individual ceremony.
	AuthenticatorTimeout time.Duration
}

// ReadRequest reads stdin to EOF and parses the request.
func ReadRequest(r io.Reader) (*Request, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", terrors.ErrMalformedRequest, err)
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", terrors.ErrMalformedRequest, err)
	}

	return &req, nil
}

// WriteResponse writes the response as a single JSON line.
func WriteResponse(w io.Writer, resp *Response) error {
	encoder := json.NewEncoder(w)
	return encoder.Encode(resp)
}

// Validate applies the fail-fast rules: version, provider, and id-set
// checks all reject the whole request before any resolution work, since a
// mismatch means the wrong resolver was invoked and partial results would
// mislead the caller.
func (r *Resolver) Validate(req *Request) error {
	if req == nil {
		return terrors.ErrMalformedRequest
	}
	if req.ProtocolVersion != ProtocolVersion {
		return fmt.Errorf("%w: got version %d, this resolver speaks version %d",
			terrors.ErrUnsupportedVersion, req.ProtocolVersion, ProtocolVersion)
	}
	if req.Provider != r.Provider {
		return fmt.Errorf("%w: request addressed to %q, this resolver serves %q",
			terrors.ErrProviderMismatch, req.Provider, r.Provider)
	}
	if len(req.IDs) == 0 {
		return fmt.Errorf("%w: no ids requested", terrors.ErrMalformedRequest)
	}
	for _, id := range req.IDs {
		if id == "" {
			return fmt.Errorf("%w: empty id", terrors.ErrMalformedRequest)
		}
		if id == SystemKey {
			return fmt.Errorf("%w: %q is a reserved id", terrors.ErrMalformedRequest, SystemKey)
		}
	}
	return nil
}

// Resolve processes an accepted request. Each id resolves independently;
// one id's failure lands in Errors without aborting its siblings.
// Ceremonies run sequentially because the user can only answer one
// presence prompt at a time. The returned error is non-nil only for
// whole-request failures (an unloadable store).
func (r *Resolver) Resolve(ctx context.Context, req *Request) (*Response, error) {
	records, err := r.Store.Load()
	if err != nil {
		return nil, err
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	resp := newResponse(r.Provider)

	for _, id := range req.IDs {
		// Duplicates collapse onto the one map entry for that id.
		if _, done := resp.Values[id]; done {
			continue
		}
		if _, done := resp.Errors[id]; done {
			continue
		}

		if ctx.Err() != nil {
			// Deadline exceeded: the remaining ids still get entries.
			resp.Errors[id] = entryFor(CodeTimeout, id)
			continue
		}

		value, err := r.resolveOne(ctx, records, id)
		if err != nil {
			code := classify(err)
			r.Logger.Debugf("failed to resolve %s: %s", id, code)
			resp.Errors[id] = entryFor(code, id)
			continue
		}
		resp.Values[id] = value
	}

	return resp, nil
}

// resolveOne resolves a single id: look up the record, run a verification
// ceremony over a fresh challenge, check the assertion, then derive and
// decrypt. Derivation parameters come from the stored record only, never
// from the request.
func (r *Resolver) resolveOne(ctx context.Context, records []store.Record, id string) (string, error) {
	record, found := store.FindByID(records, id)
	if !found {
		return "", terrors.ErrSecretNotFound
	}
	if !record.HardwareBound() {
		return "", terrors.ErrUnsupportedRecord
	}

	challenge, err := crypto.RandomChallenge()
	if err != nil {
		return "", err
	}

	r.Logger.WarnfUser("Touch your authenticator to unlock %s...", id)

	assertion, err := r.Gate.Verify(ctx, authenticator.VerificationRequest{
		RelyingPartyID: record.RelyingPartyID,
		CredentialID:   record.CredentialID,
		Challenge:      challenge,
		Timeout:        r.AuthenticatorTimeout,
	})
	if err != nil {
		return "", err
	}

	credential := &authenticator.Credential{
		ID:             record.CredentialID,
		PublicKey:      record.CredentialPublicKey,
		RelyingPartyID: record.RelyingPartyID,
		UserHandle:     record.UserHandle,
	}
	if err := authenticator.VerifyAssertion(credential, challenge, assertion); err != nil {
		return "", err
	}

	key, err := crypto.DeriveKey(record.CredentialID, record.CredentialPublicKey)
	if err != nil {
		return "", err
	}

	plaintext, err := key.Decrypt(record.Ciphertext, record.Nonce)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

// Run drives one full invocation: read the request from stdin, resolve it,
// write the response to stdout, and return the written response with the
// process exit code. Stdout carries nothing but the response; all
// diagnostics go through the logger to stderr. Even a fatal failure emits
// a parseable response first.
func (r *Resolver) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) (*Response, int) {
	req, err := ReadRequest(stdin)
	if err != nil {
		return r.fail(stdout, err)
	}

	if err := r.Validate(req); err != nil {
		return r.fail(stdout, err)
	}

	r.Logger.Infof("resolving %d id(s) for provider %s", len(req.IDs), req.Provider)

	resp, err := r.Resolve(ctx, req)
	if err != nil {
		return r.fail(stdout, err)
	}

	if err := WriteResponse(stdout, resp); err != nil {
		r.Logger.Errorf("failed to write response: %v", err)
		return resp, 1
	}

	return resp, 0
}

// fail writes a fatal response carrying a single SystemKey error and
// returns it with a nonzero exit code.
func (r *Resolver) fail(stdout io.Writer, err error) (*Response, int) {
	r.Logger.Errorf("%s", err.Error())

	resp, writeErr := WriteFatal(stdout, r.Provider, err)
	if writeErr != nil {
		r.Logger.Errorf("failed to write response: %v", writeErr)
	}

	return resp, 1
}

// WriteFatal builds and writes the fatal response for err. It also serves
// callers that fail before a Resolver can be assembled, such as when the
// installation configuration itself is unreadable; the protocol contract
// is that stdout carries a parseable response even then.
func WriteFatal(stdout io.Writer, provider string, err error) (*Response, error) {
	resp := newResponse(provider)
	resp.Errors[SystemKey] = Error{
		Code:    systemCode(err),
		Message: err.Error(),
	}
	return resp, WriteResponse(stdout, resp)
}

func newResponse(provider string) *Response {
	return &Response{
		ProtocolVersion: ProtocolVersion,
		Provider:        provider,
		Values:          make(map[string]string),
		Errors:          make(map[string]Error),
	}
}

// classify maps a resolution failure onto the per-identifier code
// vocabulary. Unknown failures fall back to Internal rather than leaking
// their detail.
func classify(err error) string {
	switch {
	case errors.Is(err, terrors.ErrSecretNotFound):
		return CodeKeyNotFound
	case errors.Is(err, terrors.ErrUnsupportedRecord):
		return CodeUnsupportedRecord
	case errors.Is(err, terrors.ErrUserCancelled):
		return CodeUserCancelled
	case errors.Is(err, terrors.ErrAuthenticatorTimeout):
		return CodeTimeout
	case errors.Is(err, terrors.ErrDeviceUnavailable):
		return CodeDeviceUnavailable
	case errors.Is(err, terrors.ErrNotAllowed):
		return CodeNotAllowed
	case errors.Is(err, terrors.ErrDecryptionFailed):
		return CodeDecryptionFailed
	}
	return CodeInternal
}

func systemCode(err error) string {
	switch {
	case errors.Is(err, terrors.ErrUnsupportedVersion):
		return CodeUnsupportedVersion
	case errors.Is(err, terrors.ErrProviderMismatch):
		return CodeProviderMismatch
	case errors.Is(err, terrors.ErrMalformedRequest):
		return CodeBadRequest
	case errors.Is(err, terrors.ErrStoreCorrupt):
		return CodeStoreCorrupt
	}
	return CodeInternal
}

// entryFor builds the response entry for a failed id. Messages stay within
// a fixed vocabulary plus the offending id; the underlying error text is
// never passed through.
func entryFor(code, id string) Error {
	var message string
	switch code {
	case CodeKeyNotFound:
		message = fmt.Sprintf("no secret with id %q", id)
	case CodeUnsupportedRecord:
		message = fmt.Sprintf("record %q is not hardware-bound", id)
	case CodeUserCancelled:
		message = fmt.Sprintf("verification for %q was cancelled", id)
	case CodeTimeout:
		message = fmt.Sprintf("verification for %q timed out", id)
	case CodeDeviceUnavailable:
		message = fmt.Sprintf("authenticator unavailable for %q", id)
	case CodeNotAllowed:
		message = fmt.Sprintf("authenticator refused the credential for %q", id)
	case CodeDecryptionFailed:
		message = fmt.Sprintf("failed to decrypt %q", id)
	default:
		message = fmt.Sprintf("internal error resolving %q", id)
	}
	return Error{Code: code, Message: message}
}
