// Package audit provides audit trail logging for tapvault operations.
//
// Every significant operation (set, get, delete, clear, resolve) is
// recorded in a per-installation audit log, so a user can reconstruct
// when each secret was touched and by which operation.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line) at:
//
//	$XDG_DATA_HOME/tapvault/audit.jsonl
//
// Each entry contains:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - Operation name and outcome
//   - Operation-specific details (secret id, counts, failure code)
//
// Plaintext secret values are never written to the log.
//
// # Usage
//
// Record an operation:
//
//	audit.Log(audit.Entry{
//	    Operation: "get",
//	    Outcome:   audit.OutcomeSuccess,
//	    SecretID:  id,
//	})
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails (permissions, disk full,
// etc.), the operation continues without error. Operations should never
// fail just because audit logging failed.
//
// # Reading Logs
//
// Use ReadEntries() to parse the audit log for display or analysis.
// Malformed entries are silently skipped to handle partial writes.
package audit
