package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tapvault/tapvault/internal/audit"
	"github.com/tapvault/tapvault/internal/authenticator"
	"github.com/tapvault/tapvault/internal/configs"
	"github.com/tapvault/tapvault/internal/store"
)

// CheckStatus represents the result status of a health check.
type CheckStatus int

const (
	// CheckPass means the check passed.
	CheckPass CheckStatus = iota
	// CheckWarning means the check found a non-critical issue.
	CheckWarning
	// CheckError means the check found a critical issue.
	CheckError
)

// String returns a string representation of CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarning:
		return "warning"
	case CheckError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for CheckStatus.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CheckResult holds the result of a single health check.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// DoctorResult holds the complete result of the doctor workflow.
type DoctorResult struct {
	Checks      []CheckResult `json:"checks"`
	Summary     DoctorSummary `json:"summary"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

// DoctorSummary holds counts of checks by status.
type DoctorSummary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// DoctorOptions configures the doctor workflow.
type DoctorOptions struct {
	// No options currently, but provides extensibility.
}

// Doctor runs health checks on the tapvault installation.
//
// The doctor workflow checks:
//   - Installation configuration validity
//   - Data directory presence
//   - Secret store parseability and permissions
//   - The unique-id invariant across records
//   - Hardware binding of every record
//   - Consistency between records and the software token's credentials
//   - Audit log readability
func Doctor(ctx context.Context, opts DoctorOptions) (*DoctorResult, error) {
	// Run all health checks.
	checks := []func() CheckResult{
		checkConfig,
		checkDataDirectory,
		checkStoreLoads,
		checkStorePermissions,
		checkUniqueIDs,
		checkHardwareBound,
		checkTokenCredentials,
		checkAuditLog,
	}

	var results []CheckResult
	for _, check := range checks {
		result := check()
		results = append(results, result)
	}

	// Calculate summary.
	summary := calculateDoctorSummary(results)

	// Collect suggestions (deduplicated).
	var suggestions []string
	seen := make(map[string]bool)
	for _, result := range results {
		if result.Suggestion != "" && result.Status != CheckPass && !seen[result.Suggestion] {
			suggestions = append(suggestions, result.Suggestion)
			seen[result.Suggestion] = true
		}
	}

	return &DoctorResult{
		Checks:      results,
		Summary:     summary,
		Suggestions: suggestions,
	}, nil
}

// checkConfig checks if the installation config exists and parses correctly.
func checkConfig() CheckResult {
	configPath := configs.ConfigFilePath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return CheckResult{
			Name:       "Installation configuration",
			Status:     CheckError,
			Message:    "config.toml not found",
			Suggestion: "Run 'tapvault init' to initialize the installation",
		}
	}

	config := &configs.Config{}
	if err := configs.LoadTOML(configPath, config); err != nil {
		return CheckResult{
			Name:       "Installation configuration",
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to parse config: %v", err),
			Suggestion: "Check the config.toml file for syntax errors",
		}
	}

	if config.Installation.UUID == "" {
		return CheckResult{
			Name:       "Installation configuration",
			Status:     CheckError,
			Message:    "Installation UUID is missing from config",
			Suggestion: "Re-initialize with 'tapvault init --force'",
		}
	}

	return CheckResult{
		Name:    "Installation configuration",
		Status:  CheckPass,
		Message: "Installation configuration valid",
	}
}

// checkDataDirectory checks that the data directory exists.
func checkDataDirectory() CheckResult {
	dataPath := configs.UserTapvaultSettings.UserDataPath

	info, err := os.Stat(dataPath)
	if os.IsNotExist(err) {
		return CheckResult{
			Name:    "Data directory",
			Status:  CheckWarning,
			Message: "Data directory does not exist yet (created on first use)",
		}
	}
	if err != nil {
		return CheckResult{
			Name:       "Data directory",
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to stat data directory: %v", err),
			Suggestion: "Check that the data directory is accessible",
		}
	}
	if !info.IsDir() {
		return CheckResult{
			Name:       "Data directory",
			Status:     CheckError,
			Message:    "Data path exists but is not a directory",
			Suggestion: fmt.Sprintf("Move the file at %s out of the way", dataPath),
		}
	}

	return CheckResult{
		Name:    "Data directory",
		Status:  CheckPass,
		Message: "Data directory exists",
	}
}

// checkStoreLoads checks if the secret store parses correctly.
func checkStoreLoads() CheckResult {
	storePath := configs.StorePath()
	if _, err := os.Stat(storePath); os.IsNotExist(err) {
		return CheckResult{
			Name:    "Secret store",
			Status:  CheckPass,
			Message: "No secret store yet (no secrets stored)",
		}
	}

	records, err := store.New(storePath).Load()
	if err != nil {
		return CheckResult{
			Name:       "Secret store",
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to load secret store: %v", err),
			Suggestion: "Restore secrets.json from a backup, or clear it and re-create your secrets",
		}
	}

	return CheckResult{
		Name:    "Secret store",
		Status:  CheckPass,
		Message: fmt.Sprintf("Secret store loads (%d record(s))", len(records)),
	}
}

// checkStorePermissions checks if the store file has secure permissions.
func checkStorePermissions() CheckResult {
	storePath := configs.StorePath()

	info, err := os.Stat(storePath)
	if os.IsNotExist(err) {
		return CheckResult{
			Name:    "Store permissions",
			Status:  CheckPass,
			Message: "No store file yet (skipping permissions check)",
		}
	}
	if err != nil {
		return CheckResult{
			Name:       "Store permissions",
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to stat secret store: %v", err),
			Suggestion: "Check that the store file is accessible",
		}
	}

	// Check permissions (should be 0600).
	mode := info.Mode().Perm()
	if mode != 0600 {
		return CheckResult{
			Name:       "Store permissions",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Secret store has loose permissions (%04o)", mode),
			Suggestion: fmt.Sprintf("Run 'chmod 600 %s' to fix permissions", storePath),
		}
	}

	return CheckResult{
		Name:    "Store permissions",
		Status:  CheckPass,
		Message: "Secret store has correct permissions (0600)",
	}
}

// checkUniqueIDs checks that no two records share an id.
func checkUniqueIDs() CheckResult {
	records, result := loadRecordsForCheck("Record ids")
	if result != nil {
		return *result
	}

	seen := make(map[string]bool)
	duplicates := 0
	for _, record := range records {
		if seen[record.ID] {
			duplicates++
		}
		seen[record.ID] = true
	}

	if duplicates > 0 {
		return CheckResult{
			Name:       "Record ids",
			Status:     CheckError,
			Message:    fmt.Sprintf("Found %d duplicate record id(s)", duplicates),
			Suggestion: "Delete and re-create the affected secret with 'tapvault delete' and 'tapvault set'",
		}
	}

	return CheckResult{
		Name:    "Record ids",
		Status:  CheckPass,
		Message: "All record ids are unique",
	}
}

// checkHardwareBound checks that every record carries ciphertext and a
// credential public key.
func checkHardwareBound() CheckResult {
	records, result := loadRecordsForCheck("Hardware binding")
	if result != nil {
		return *result
	}

	unbound := 0
	for i := range records {
		if !records[i].HardwareBound() {
			unbound++
		}
	}

	if unbound > 0 {
		return CheckResult{
			Name:       "Hardware binding",
			Status:     CheckError,
			Message:    fmt.Sprintf("%d record(s) are not hardware-bound and cannot be resolved", unbound),
			Suggestion: "Re-create the affected secrets with 'tapvault set'",
		}
	}

	return CheckResult{
		Name:    "Hardware binding",
		Status:  CheckPass,
		Message: "All records are hardware-bound",
	}
}

// checkTokenCredentials cross-checks stored records against the software
// token's credentials.
func checkTokenCredentials() CheckResult {
	config, err := configs.LoadConfig()
	if err != nil {
		return CheckResult{
			Name:       "Token credentials",
			Status:     CheckError,
			Message:    "Cannot check token: configuration unreadable",
			Suggestion: "Run 'tapvault init' to initialize the installation",
		}
	}

	if config.Authenticator.Kind != authenticator.KindSoftToken {
		return CheckResult{
			Name:    "Token credentials",
			Status:  CheckPass,
			Message: "Not using the software token (skipping consistency check)",
		}
	}

	records, result := loadRecordsForCheck("Token credentials")
	if result != nil {
		return *result
	}

	bound := 0
	for i := range records {
		if records[i].HardwareBound() {
			bound++
		}
	}
	if bound == 0 {
		return CheckResult{
			Name:    "Token credentials",
			Status:  CheckPass,
			Message: "No enrolled credentials to check",
		}
	}

	token := authenticator.NewSoftToken(configs.TokenStatePath(), 0)
	credentialIDs, err := token.CredentialIDs()
	if err != nil {
		return CheckResult{
			Name:       "Token credentials",
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to read token state: %v", err),
			Suggestion: "Check that softtoken.json is accessible and valid JSON",
		}
	}

	known := make(map[string]bool, len(credentialIDs))
	for _, id := range credentialIDs {
		known[id] = true
	}

	missing := 0
	for i := range records {
		if records[i].HardwareBound() && !known[records[i].CredentialID] {
			missing++
		}
	}

	if missing > 0 {
		return CheckResult{
			Name:       "Token credentials",
			Status:     CheckError,
			Message:    fmt.Sprintf("%d record(s) reference credentials missing from the token state", missing),
			Suggestion: "Re-create the affected secrets with 'tapvault set'",
		}
	}

	return CheckResult{
		Name:    "Token credentials",
		Status:  CheckPass,
		Message: "Every record's credential is present in the token state",
	}
}

// checkAuditLog verifies the audit log parses. An absent log is fine; the
// first operation creates it.
func checkAuditLog() CheckResult {
	logPath := audit.LogPath()
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		return CheckResult{
			Name:    "Audit log",
			Status:  CheckPass,
			Message: "No audit log yet (created on first operation)",
		}
	}

	entries, err := audit.ReadEntries()
	if err != nil {
		return CheckResult{
			Name:       "Audit log",
			Status:     CheckError,
			Message:    fmt.Sprintf("Audit log unreadable: %v", err),
			Suggestion: fmt.Sprintf("Move the file at %s out of the way; a fresh log starts on the next operation", logPath),
		}
	}

	return CheckResult{
		Name:    "Audit log",
		Status:  CheckPass,
		Message: fmt.Sprintf("Audit log parses (%d entries)", len(entries)),
	}
}

// loadRecordsForCheck loads the store for a named check, translating load
// failures into a CheckResult. An absent store is an empty record set.
func loadRecordsForCheck(checkName string) ([]store.Record, *CheckResult) {
	records, err := store.New(configs.StorePath()).Load()
	if err != nil {
		return nil, &CheckResult{
			Name:       checkName,
			Status:     CheckError,
			Message:    "Cannot check: secret store unreadable",
			Suggestion: "Fix the secret store first (see the Secret store check)",
		}
	}
	return records, nil
}

// calculateDoctorSummary calculates the counts of checks by status.
func calculateDoctorSummary(results []CheckResult) DoctorSummary {
	var summary DoctorSummary
	for _, result := range results {
		switch result.Status {
		case CheckPass:
			summary.Passed++
		case CheckWarning:
			summary.Warnings++
		case CheckError:
			summary.Errors++
		}
	}
	return summary
}
