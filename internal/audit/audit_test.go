package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tapvault/tapvault/internal/configs"
)

func swapAuditSettings(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	originalSettings := configs.UserTapvaultSettings
	configs.UserTapvaultSettings = &configs.UserSettings{
		UserConfigPath: filepath.Join(tempDir, "config"),
		UserDataPath:   filepath.Join(tempDir, "data"),
	}
	t.Cleanup(func() {
		configs.UserTapvaultSettings = originalSettings
	})
	return tempDir
}

func TestLog_CreatesFile(t *testing.T) {
	swapAuditSettings(t)

	Log(Entry{
		Operation: "set",
		Outcome:   OutcomeSuccess,
		SecretID:  "stripe_api_key",
	})

	if _, err := os.Stat(LogPath()); os.IsNotExist(err) {
		t.Fatalf("Audit log file was not created")
	}
}

func TestLog_AppendsEntries(t *testing.T) {
	swapAuditSettings(t)

	Log(Entry{Operation: "set", Outcome: OutcomeSuccess, SecretID: "alpha"})
	Log(Entry{Operation: "get", Outcome: OutcomeSuccess, SecretID: "alpha"})
	Log(Entry{Operation: "delete", Outcome: OutcomeFailure, SecretID: "beta"})

	data, err := os.ReadFile(LogPath())
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Errorf("Expected 3 lines, got %d", len(lines))
	}
}

func TestLog_ValidJSON(t *testing.T) {
	swapAuditSettings(t)

	Log(Entry{
		Operation:     "resolve",
		Outcome:       OutcomePartial,
		Provider:      "tapvault",
		RequestedIDs:  3,
		ResolvedCount: 2,
		FailedCount:   1,
	})

	data, err := os.ReadFile(LogPath())
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}

	var parsed Entry
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &parsed); err != nil {
		t.Fatalf("Entry is not valid JSON: %v", err)
	}

	if parsed.Operation != "resolve" {
		t.Errorf("Expected operation resolve, got %s", parsed.Operation)
	}
	if parsed.RequestedIDs != 3 || parsed.ResolvedCount != 2 || parsed.FailedCount != 1 {
		t.Errorf("Resolve counters did not round-trip: %+v", parsed)
	}
}

func TestLog_TimestampFormat(t *testing.T) {
	swapAuditSettings(t)

	// Log an entry without timestamp (should be auto-set).
	Log(Entry{Operation: "get", Outcome: OutcomeSuccess, SecretID: "alpha"})

	data, err := os.ReadFile(LogPath())
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}

	var parsed Entry
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &parsed); err != nil {
		t.Fatalf("Entry is not valid JSON: %v", err)
	}

	// Check timestamp format: 2006-01-02T15:04:05.000000Z.
	if parsed.Timestamp == "" {
		t.Errorf("Timestamp should be auto-set")
	}
	if !strings.HasSuffix(parsed.Timestamp, "Z") {
		t.Errorf("Timestamp should end with Z, got %s", parsed.Timestamp)
	}
	if !strings.Contains(parsed.Timestamp, ".") {
		t.Errorf("Timestamp should contain microseconds, got %s", parsed.Timestamp)
	}
}

func TestLog_OmitsEmptyFields(t *testing.T) {
	swapAuditSettings(t)

	// Log an entry with only required fields.
	Log(Entry{Operation: "clear", Outcome: OutcomeSuccess})

	data, err := os.ReadFile(LogPath())
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}

	line := strings.TrimSpace(string(data))

	// Check that optional fields are not present.
	if strings.Contains(line, `"secret_id"`) {
		t.Errorf("Empty secret_id field should be omitted")
	}
	if strings.Contains(line, `"provider"`) {
		t.Errorf("Empty provider field should be omitted")
	}
	if strings.Contains(line, `"detail"`) {
		t.Errorf("Empty detail field should be omitted")
	}
}

func TestLog_NoDataPath(t *testing.T) {
	originalSettings := configs.UserTapvaultSettings
	configs.UserTapvaultSettings = &configs.UserSettings{UserDataPath: ""}
	defer func() {
		configs.UserTapvaultSettings = originalSettings
	}()

	// Log should not panic or error.
	Log(Entry{Operation: "set", Outcome: OutcomeSuccess}) // Should silently do nothing.
}

func TestParseEntries_ValidData(t *testing.T) {
	data := []byte(`{"ts":"2026-01-15T10:30:00.123456Z","op":"set","outcome":"success","secret_id":"alpha"}
{"ts":"2026-01-15T10:35:00.456789Z","op":"get","outcome":"failure","secret_id":"beta"}
`)

	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}

	if len(entries) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(entries))
	}

	if entries[0].SecretID != "alpha" {
		t.Errorf("Expected first secret id alpha, got %s", entries[0].SecretID)
	}
	if entries[1].Outcome != OutcomeFailure {
		t.Errorf("Expected second outcome failure, got %s", entries[1].Outcome)
	}
}

func TestParseEntries_SkipsMalformedLines(t *testing.T) {
	data := []byte(`{"ts":"2026-01-15T10:30:00.123456Z","op":"set","outcome":"success"}
this is not valid json
{"ts":"2026-01-15T10:35:00.456789Z","op":"get","outcome":"success"}
`)

	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}

	if len(entries) != 2 {
		t.Errorf("Expected 2 valid entries (malformed should be skipped), got %d", len(entries))
	}
}

func TestParseEntries_EmptyData(t *testing.T) {
	entries, err := ParseEntries([]byte{})
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}

	if entries != nil {
		t.Errorf("Expected nil entries for empty data, got %v", entries)
	}
}

func TestLogPath(t *testing.T) {
	tempDir := swapAuditSettings(t)

	want := filepath.Join(tempDir, "data", "audit.jsonl")
	if got := LogPath(); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestLogPath_NoDataPath(t *testing.T) {
	originalSettings := configs.UserTapvaultSettings
	configs.UserTapvaultSettings = &configs.UserSettings{UserDataPath: ""}
	defer func() {
		configs.UserTapvaultSettings = originalSettings
	}()

	if path := LogPath(); path != "" {
		t.Errorf("Expected empty path, got %s", path)
	}
}
