package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tapvault/tapvault/internal/authenticator"
	"github.com/tapvault/tapvault/internal/crypto"
	terrors "github.com/tapvault/tapvault/internal/errors"
	"github.com/tapvault/tapvault/internal/store"
)

const testRelyingParty = "tapvault.local"

func testResolver(t *testing.T) *Resolver {
	t.Helper()
	dir := t.TempDir()
	return &Resolver{
		Provider: "tapvault",
		Store:    store.New(filepath.Join(dir, "secrets.json")),
		Gate:     authenticator.NewSoftToken(filepath.Join(dir, "softtoken.json"), 0),
		Timeout:  30 * time.Second,
	}
}

// seedSecret enrolls a credential and stores value under id, the same way
// the set operation does.
func seedSecret(t *testing.T, r *Resolver, id, value string) {
	t.Helper()

	credential, err := r.Gate.Enroll(context.Background(), authenticator.EnrollmentRequest{
		RelyingPartyID: testRelyingParty,
		UserHandle:     store.UserHandle(id),
		UserName:       id,
	})
	if err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}

	key, err := crypto.DeriveKey(credential.ID, credential.PublicKey)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	ciphertext, nonce, err := key.Encrypt([]byte(value))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	records, err := r.Store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	records = append(records, store.Record{
		ID:                  id,
		Label:               id,
		Ciphertext:          ciphertext,
		Nonce:               nonce,
		CreatedAt:           time.Now().UnixMilli(),
		RelyingPartyID:      testRelyingParty,
		UserHandle:          store.UserHandle(id),
		CredentialID:        credential.ID,
		CredentialPublicKey: credential.PublicKey,
	})
	if err := r.Store.Save(records); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
}

func runRequest(t *testing.T, r *Resolver, input string) (int, *Response, []byte) {
	t.Helper()

	var stdout bytes.Buffer
	_, exitCode := r.Run(context.Background(), strings.NewReader(input), &stdout)

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		t.Fatalf("Response is not valid JSON: %v\noutput: %s", err, stdout.String())
	}
	return exitCode, &resp, stdout.Bytes()
}

func TestResolveSingleSecret(t *testing.T) {
	r := testResolver(t)
	seedSecret(t, r, "stripe_api_key", "sk_live_abc123")

	resp, err := r.Resolve(context.Background(), &Request{
		ProtocolVersion: 1,
		Provider:        "tapvault",
		IDs:             []string{"stripe_api_key"},
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if got := resp.Values["stripe_api_key"]; got != "sk_live_abc123" {
		t.Errorf("Expected decrypted value, got %q", got)
	}
	if len(resp.Errors) != 0 {
		t.Errorf("Expected no errors, got %v", resp.Errors)
	}
}

func TestResolveProtocolCompleteness(t *testing.T) {
	r := testResolver(t)
	seedSecret(t, r, "alpha", "value-alpha")
	seedSecret(t, r, "beta", "value-beta")

	ids := []string{"alpha", "beta", "missing-1", "missing-2", "missing-3"}
	resp, err := r.Resolve(context.Background(), &Request{
		ProtocolVersion: 1,
		Provider:        "tapvault",
		IDs:             ids,
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Every requested id lands in exactly one of values or errors.
	if got := len(resp.Values) + len(resp.Errors); got != len(ids) {
		t.Errorf("Expected %d total entries, got %d", len(ids), got)
	}
	for _, id := range ids {
		_, inValues := resp.Values[id]
		_, inErrors := resp.Errors[id]
		if inValues == inErrors {
			t.Errorf("Id %q should appear in exactly one of values/errors", id)
		}
	}

	notFound := 0
	for _, entry := range resp.Errors {
		if entry.Code == CodeKeyNotFound {
			notFound++
		}
	}
	if notFound != 3 {
		t.Errorf("Expected 3 KeyNotFound entries, got %d", notFound)
	}
}

func TestRunPartialFailureIsolation(t *testing.T) {
	r := testResolver(t)
	seedSecret(t, r, "a", "value-a")

	exitCode, resp, _ := runRequest(t, r,
		`{"protocolVersion":1,"provider":"tapvault","ids":["a","b"]}`)

	// One id failing never fails the whole invocation.
	if exitCode != 0 {
		t.Errorf("Expected exit code 0, got %d", exitCode)
	}
	if got := resp.Values["a"]; got != "value-a" {
		t.Errorf("Expected value for a, got %q", got)
	}
	entry, ok := resp.Errors["b"]
	if !ok {
		t.Fatal("Expected an error entry for b")
	}
	if entry.Code != CodeKeyNotFound {
		t.Errorf("Expected KeyNotFound for b, got %s", entry.Code)
	}
	if !strings.Contains(entry.Message, `"b"`) {
		t.Errorf("Error message should name the offending id, got %q", entry.Message)
	}
}

func TestRunVersionMismatch(t *testing.T) {
	r := testResolver(t)
	seedSecret(t, r, "a", "value-a")

	exitCode, resp, _ := runRequest(t, r,
		`{"protocolVersion":2,"provider":"tapvault","ids":["a"]}`)

	if exitCode == 0 {
		t.Error("Expected nonzero exit code")
	}
	if len(resp.Values) != 0 {
		t.Errorf("Expected no values on fatal failure, got %v", resp.Values)
	}
	if len(resp.Errors) != 1 {
		t.Fatalf("Expected a single system error, got %v", resp.Errors)
	}
	entry, ok := resp.Errors[SystemKey]
	if !ok {
		t.Fatal("Expected the reserved _system error key")
	}
	if entry.Code != CodeUnsupportedVersion {
		t.Errorf("Expected UnsupportedVersion, got %s", entry.Code)
	}
}

func TestRunProviderMismatch(t *testing.T) {
	r := testResolver(t)

	exitCode, resp, _ := runRequest(t, r,
		`{"protocolVersion":1,"provider":"someone-else","ids":["a"]}`)

	if exitCode == 0 {
		t.Error("Expected nonzero exit code")
	}
	if resp.Errors[SystemKey].Code != CodeProviderMismatch {
		t.Errorf("Expected ProviderMismatch, got %s", resp.Errors[SystemKey].Code)
	}
}

func TestRunMalformedRequests(t *testing.T) {
	inputs := map[string]string{
		"not json":  `this is not json`,
		"empty ids": `{"protocolVersion":1,"provider":"tapvault","ids":[]}`,
		"blank id":  `{"protocolVersion":1,"provider":"tapvault","ids":["a",""]}`,
		"reserved":  `{"protocolVersion":1,"provider":"tapvault","ids":["_system"]}`,
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			r := testResolver(t)
			exitCode, resp, _ := runRequest(t, r, input)

			if exitCode == 0 {
				t.Error("Expected nonzero exit code")
			}
			if resp.Errors[SystemKey].Code != CodeBadRequest {
				t.Errorf("Expected BadRequest, got %s", resp.Errors[SystemKey].Code)
			}
		})
	}
}

func TestRunCorruptStore(t *testing.T) {
	r := testResolver(t)
	if err := os.MkdirAll(filepath.Dir(r.Store.Path()), 0700); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(r.Store.Path(), []byte("{ not a record array"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	exitCode, resp, _ := runRequest(t, r,
		`{"protocolVersion":1,"provider":"tapvault","ids":["a"]}`)

	if exitCode == 0 {
		t.Error("Expected nonzero exit code")
	}
	if resp.Errors[SystemKey].Code != CodeStoreCorrupt {
		t.Errorf("Expected StoreCorrupt, got %s", resp.Errors[SystemKey].Code)
	}
}

func TestResolveDuplicateIDs(t *testing.T) {
	r := testResolver(t)
	seedSecret(t, r, "a", "value-a")

	resp, err := r.Resolve(context.Background(), &Request{
		ProtocolVersion: 1,
		Provider:        "tapvault",
		IDs:             []string{"a", "a", "missing", "missing"},
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Duplicates collapse onto one map entry each.
	if len(resp.Values) != 1 {
		t.Errorf("Expected 1 value entry, got %d", len(resp.Values))
	}
	if len(resp.Errors) != 1 {
		t.Errorf("Expected 1 error entry, got %d", len(resp.Errors))
	}
}

func TestResolveRejectsNotHardwareBound(t *testing.T) {
	r := testResolver(t)

	// A record without ciphertext or public key is a degenerate shape that
	// must never be passed through as plaintext.
	records := []store.Record{{
		ID:             "legacy",
		Label:          "Legacy record",
		CreatedAt:      time.Now().UnixMilli(),
		RelyingPartyID: testRelyingParty,
	}}
	if err := r.Store.Save(records); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	resp, err := r.Resolve(context.Background(), &Request{
		ProtocolVersion: 1,
		Provider:        "tapvault",
		IDs:             []string{"legacy"},
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	entry, ok := resp.Errors["legacy"]
	if !ok {
		t.Fatal("Expected an error entry for the legacy record")
	}
	if entry.Code != CodeUnsupportedRecord {
		t.Errorf("Expected UnsupportedRecord, got %s", entry.Code)
	}
	if len(resp.Values) != 0 {
		t.Errorf("Legacy record must not yield a value, got %v", resp.Values)
	}
}

func TestResolveTamperedCiphertext(t *testing.T) {
	r := testResolver(t)
	seedSecret(t, r, "a", "value-a")

	records, err := r.Store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	records[0].Ciphertext[0] ^= 0xff
	if err := r.Store.Save(records); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	resp, err := r.Resolve(context.Background(), &Request{
		ProtocolVersion: 1,
		Provider:        "tapvault",
		IDs:             []string{"a"},
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if resp.Errors["a"].Code != CodeDecryptionFailed {
		t.Errorf("Expected DecryptionFailed, got %s", resp.Errors["a"].Code)
	}
}

func TestResolveDeadlineFillsRemaining(t *testing.T) {
	r := testResolver(t)
	seedSecret(t, r, "a", "value-a")
	seedSecret(t, r, "b", "value-b")

	// A slow token against a short whole-request deadline: the first
	// ceremony times out, and the rest are filled without being attempted.
	dir := t.TempDir()
	r.Gate = authenticator.NewSoftToken(filepath.Join(dir, "softtoken.json"), 500*time.Millisecond)
	r.Timeout = 25 * time.Millisecond

	resp, err := r.Resolve(context.Background(), &Request{
		ProtocolVersion: 1,
		Provider:        "tapvault",
		IDs:             []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(resp.Values) != 0 {
		t.Errorf("Expected no values after deadline, got %v", resp.Values)
	}
	for _, id := range []string{"a", "b"} {
		entry, ok := resp.Errors[id]
		if !ok {
			t.Errorf("Expected an entry for %q after deadline", id)
			continue
		}
		if entry.Code != CodeTimeout {
			t.Errorf("Expected Timeout for %q, got %s", id, entry.Code)
		}
	}
}

func TestResolveUserCancelled(t *testing.T) {
	r := testResolver(t)
	seedSecret(t, r, "a", "value-a")

	records, err := r.Store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.resolveOne(ctx, records, "a")
	if !errors.Is(err, terrors.ErrUserCancelled) {
		t.Errorf("Expected ErrUserCancelled, got %v", err)
	}
	if classify(err) != CodeUserCancelled {
		t.Errorf("Expected UserCancelled code, got %s", classify(err))
	}
}

func TestRunStdoutIsSingleResponse(t *testing.T) {
	r := testResolver(t)
	seedSecret(t, r, "a", "value-a")

	var stdout bytes.Buffer
	_, exitCode := r.Run(context.Background(), strings.NewReader(
		`{"protocolVersion":1,"provider":"tapvault","ids":["a"]}`), &stdout)

	if exitCode != 0 {
		t.Errorf("Expected exit code 0, got %d", exitCode)
	}

	// Stdout must hold exactly one JSON object and nothing else.
	decoder := json.NewDecoder(&stdout)
	var resp Response
	if err := decoder.Decode(&resp); err != nil {
		t.Fatalf("Stdout is not a JSON response: %v", err)
	}
	if decoder.More() {
		t.Error("Stdout carries bytes beyond the response object")
	}
}

func TestFatalResponseShape(t *testing.T) {
	r := testResolver(t)

	_, _, raw := runRequest(t, r, `{"protocolVersion":9,"provider":"tapvault","ids":["a"]}`)

	// The fatal path carries the same top-level keys as the success path.
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shape); err != nil {
		t.Fatalf("Fatal response is not valid JSON: %v", err)
	}
	for _, key := range []string{"protocolVersion", "provider", "values", "errors"} {
		if _, ok := shape[key]; !ok {
			t.Errorf("Fatal response is missing top-level key %q", key)
		}
	}
}

func TestErrorRetryable(t *testing.T) {
	retryable := []string{CodeUserCancelled, CodeTimeout, CodeDeviceUnavailable}
	permanent := []string{CodeKeyNotFound, CodeUnsupportedRecord, CodeNotAllowed, CodeDecryptionFailed}

	for _, code := range retryable {
		if !(Error{Code: code}).Retryable() {
			t.Errorf("Expected %s to be retryable", code)
		}
	}
	for _, code := range permanent {
		if (Error{Code: code}).Retryable() {
			t.Errorf("Expected %s to be permanent", code)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{terrors.ErrSecretNotFound, CodeKeyNotFound},
		{terrors.ErrUnsupportedRecord, CodeUnsupportedRecord},
		{terrors.ErrUserCancelled, CodeUserCancelled},
		{terrors.ErrAuthenticatorTimeout, CodeTimeout},
		{terrors.ErrDeviceUnavailable, CodeDeviceUnavailable},
		{terrors.ErrNotAllowed, CodeNotAllowed},
		{terrors.ErrDecryptionFailed, CodeDecryptionFailed},
	}

	for _, tc := range cases {
		if got := classify(tc.err); got != tc.want {
			t.Errorf("classify(%v): expected %s, got %s", tc.err, tc.want, got)
		}
		// Wrapped sentinels classify the same way.
		wrapped := fmt.Errorf("%w: extra context", tc.err)
		if got := classify(wrapped); got != tc.want {
			t.Errorf("classify(wrapped %v): expected %s, got %s", tc.err, tc.want, got)
		}
	}

	if got := classify(errors.New("something else")); got != CodeInternal {
		t.Errorf("Expected Internal for unknown errors, got %s", got)
	}
}

func TestReadRequest(t *testing.T) {
	req, err := ReadRequest(strings.NewReader(
		"{\"protocolVersion\":1,\"provider\":\"tapvault\",\"ids\":[\"a\"]}\n"))
	if err != nil {
		t.Fatalf("ReadRequest failed: %v", err)
	}
	if req.ProtocolVersion != 1 || req.Provider != "tapvault" || len(req.IDs) != 1 {
		t.Errorf("Request did not parse as expected: %+v", req)
	}
}
