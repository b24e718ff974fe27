package workflows

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tapvault/tapvault/internal/configs"
	"github.com/tapvault/tapvault/internal/store"
)

// swapSettings points the settings global at temp directories for one test.
func swapSettings(t *testing.T) {
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
}

// setupWorkspace swaps settings and writes an initialized configuration
// with the software token's presence delay disabled, so ceremonies do not
// slow the tests down.
func setupWorkspace(t *testing.T) {
	t.Helper()
	swapSettings(t)

	config := configs.DefaultConfig()
	config.Authenticator.PresenceDelayMs = 0
	if err := configs.SaveConfig(config); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
}

func mustSet(t *testing.T, id, value string) *SetResult {
	t.Helper()
	result, err := Set(context.Background(), SetOptions{ID: id, Value: value})
	if err != nil {
		t.Fatalf("Set %q failed: %v", id, err)
	}
	return result
}

func loadRecords(t *testing.T) []store.Record {
	t.Helper()
	records, err := store.New(configs.StorePath()).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return records
}
