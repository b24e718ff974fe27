// Package resolver implements the request/response protocol spoken over
// standard input and output.
//
// A host application spawns the resolver, writes one JSON request to its
// stdin, and reads one JSON response from its stdout:
//
//	{ "protocolVersion": 1, "provider": "tapvault", "ids": ["a", "b"] }
//
//	{ "protocolVersion": 1, "provider": "tapvault",
//	  "values": { "a": "plaintext" },
//	  "errors": { "b": { "code": "KeyNotFound", "message": "no secret with id \"b\"" } } }
//
// Every requested id lands in exactly one of values or errors, never both
// and never neither. Stdout carries nothing but the response object; user
// prompts and diagnostics go to stderr.
//
// # Fail-Fast Versus Per-Id Failure
//
// A version mismatch, provider mismatch, or malformed id set rejects the
// whole request: the wrong resolver was invoked, and partial results would
// mislead the caller. Those failures exit nonzero and still emit a
// response, with the errors map holding the single reserved key "_system".
// The fatal response has the same top-level shape as the success response
// so one parser serves both.
//
// Once a request is accepted, each id resolves independently. A host
// asking for five secrets still receives the four that succeeded; the
// fifth gets an error entry with a code from the fixed vocabulary.
// Error.Retryable distinguishes user/device failures (worth re-invoking)
// from data failures (permanent).
//
// # Deadline
//
// The whole request runs under one deadline. When it expires, every id
// not yet resolved is reported as Timeout, so the response always covers
// the full request.
package resolver
