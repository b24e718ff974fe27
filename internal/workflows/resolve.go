package workflows

import (
	"context"
	"io"
	"time"

	"github.com/tapvault/tapvault/internal/audit"
	"github.com/tapvault/tapvault/internal/authenticator"
	"github.com/tapvault/tapvault/internal/configs"
	logger "github.com/tapvault/tapvault/internal/logging"
	"github.com/tapvault/tapvault/internal/resolver"
	"github.com/tapvault/tapvault/internal/store"
)

// ResolveOptions configures the resolve workflow.
type ResolveOptions struct {
	// Provider overrides the configured provider identifier.
	Provider string

	// Timeout overrides the configured whole-request deadline.
	Timeout time.Duration

	// Stdin carries the request. Stdout carries nothing but the response.
	Stdin  io.Reader
	Stdout io.Writer

	// Logger receives ceremony prompts and diagnostics on stderr.
	Logger logger.Logger
}

// ResolveResult contains the outcome of a resolve operation.
type ResolveResult struct {
	// ExitCode is the process exit code mandated by the protocol: zero
	// unless the whole request was rejected.
	ExitCode int

	// Provider is the identifier the resolver answered for.
	Provider string

	// Requested, Resolved, and Failed count the request's distinct ids.
	// All zero when the request was rejected whole.
	Requested int
	Resolved  int
	Failed    int
}

// Resolve runs one resolution protocol exchange over the given streams.
//
// Per-id failures are reported inside the response and still exit zero;
// only a whole-request rejection exits nonzero. Every path, including a
// configuration that cannot be loaded, writes a parseable response to
// Stdout before returning.
func Resolve(ctx context.Context, opts ResolveOptions) (*ResolveResult, error) {
	config, err := configs.LoadConfig()
	if err != nil {
		return fatalResolve(opts, opts.Provider, err), nil
	}

	provider := opts.Provider
	if provider == "" {
		provider = config.Resolver.Provider
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = config.ResolverTimeout()
	}

	gate, err := authenticator.New(config.Authenticator.Kind, configs.TokenStatePath(), config.PresenceDelay())
	if err != nil {
		return fatalResolve(opts, provider, err), nil
	}

	r := &resolver.Resolver{
		Provider:             provider,
		Store:                store.New(configs.StorePath()),
		Gate:                 gate,
		Logger:               opts.Logger,
		Timeout:              timeout,
		AuthenticatorTimeout: config.AuthenticatorTimeout(),
	}

	resp, exitCode := r.Run(ctx, opts.Stdin, opts.Stdout)

	result := &ResolveResult{ExitCode: exitCode, Provider: provider}
	entry := audit.Entry{Operation: "resolve", Provider: provider}

	if exitCode != 0 {
		entry.Outcome = audit.OutcomeFailure
		if sys, ok := resp.Errors[resolver.SystemKey]; ok {
			entry.Detail = sys.Code
		}
		audit.Log(entry)
		return result, nil
	}

	result.Requested = len(resp.Values) + len(resp.Errors)
	result.Resolved = len(resp.Values)
	result.Failed = len(resp.Errors)

	entry.Outcome = audit.OutcomeSuccess
	if result.Failed > 0 {
		entry.Outcome = audit.OutcomePartial
	}
	entry.RequestedIDs = result.Requested
	entry.ResolvedCount = result.Resolved
	entry.FailedCount = result.Failed
	audit.Log(entry)

	return result, nil
}

// fatalResolve reports a failure that happened before a Resolver could be
// assembled. The protocol contract still holds: stdout gets a parseable
// response naming the failure, never bare text.
func fatalResolve(opts ResolveOptions, provider string, err error) *ResolveResult {
	opts.Logger.Errorf("%s", err.Error())

	resp, writeErr := resolver.WriteFatal(opts.Stdout, provider, err)
	if writeErr != nil {
		opts.Logger.Errorf("failed to write response: %v", writeErr)
	}

	entry := audit.Entry{
		Operation: "resolve",
		Outcome:   audit.OutcomeFailure,
		Provider:  provider,
	}
	if sys, ok := resp.Errors[resolver.SystemKey]; ok {
		entry.Detail = sys.Code
	}
	audit.Log(entry)

	return &ResolveResult{ExitCode: 1, Provider: provider}
}
