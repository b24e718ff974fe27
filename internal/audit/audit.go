package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/tapvault/tapvault/internal/configs"
)

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp string `json:"ts"` // RFC3339 with microseconds.
	Operation string `json:"op"` // Operation name: set, get, delete, clear, resolve, init.
	Outcome   string `json:"outcome"`

	// Optional fields depending on operation.
	SecretID      string `json:"secret_id,omitempty"`      // For set/get/delete.
	CredentialID  string `json:"credential_id,omitempty"`  // For set.
	Replaced      bool   `json:"replaced,omitempty"`       // For set over an existing id.
	RemovedCount  int    `json:"removed_count,omitempty"`  // For clear.
	RequestedIDs  int    `json:"requested_ids,omitempty"`  // For resolve.
	ResolvedCount int    `json:"resolved_count,omitempty"` // For resolve.
	FailedCount   int    `json:"failed_count,omitempty"`   // For resolve.
	Provider      string `json:"provider,omitempty"`       // For resolve.
	Detail        string `json:"detail,omitempty"`         // Failure code or note.
}

// Outcome values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)

// Log appends an entry to the audit log.
// If logging fails, the operation proceeds anyway: operations should not
// fail just because audit logging failed. Plaintext values never appear
// in entries.
func Log(entry Entry) {
	// Set timestamp if not already set.
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}

	logPath := LogPath()
	if logPath == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	_, _ = f.Write(append(data, '\n'))
}

// LogPath returns the path to the audit log file.
func LogPath() string {
	dataPath := configs.UserTapvaultSettings.UserDataPath
	if dataPath == "" {
		return ""
	}
	return filepath.Join(dataPath, "audit.jsonl")
}

// ReadEntries reads all entries from the audit log.
// Returns an empty slice if the log doesn't exist.
func ReadEntries() ([]Entry, error) {
	logPath := LogPath()
	if logPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(logPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				// Skip malformed entries.
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
