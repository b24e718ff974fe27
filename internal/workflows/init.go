package workflows

import (
	"context"
	"fmt"
	"os"

	"github.com/tapvault/tapvault/internal/audit"
	"github.com/tapvault/tapvault/internal/configs"
	terrors "github.com/tapvault/tapvault/internal/errors"
)

// InitOptions configures the init workflow.
type InitOptions struct {
	// Force recreates the configuration even if one already exists.
	Force bool
}

// InitResult contains the outcome of an init operation.
type InitResult struct {
	// ConfigPath is where the configuration was written.
	ConfigPath string

	// InstallationUUID identifies the new installation.
	InstallationUUID string

	// RelyingPartyID scopes every credential this installation enrolls.
	RelyingPartyID string

	// Recreated indicates an existing configuration was overwritten.
	Recreated bool
}

// Init creates the installation configuration.
//
// The workflow:
//  1. Generates a fresh installation UUID
//  2. Writes the default config.toml under the user config directory
//  3. Creates the data directory that will hold the secret store
//
// Returns ErrAlreadyInitialized if a configuration exists and Force is not set.
func Init(ctx context.Context, opts InitOptions) (*InitResult, error) {
	configPath := configs.ConfigFilePath()

	recreated := false
	if _, err := os.Stat(configPath); err == nil {
		if !opts.Force {
			return nil, terrors.ErrAlreadyInitialized
		}
		recreated = true
	}

	config := configs.DefaultConfig()
	if err := configs.SaveConfig(config); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	if err := os.MkdirAll(configs.UserTapvaultSettings.UserDataPath, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	entry := audit.Entry{
		Operation: "init",
		Outcome:   audit.OutcomeSuccess,
	}
	if recreated {
		entry.Detail = "recreated"
	}
	audit.Log(entry)

	return &InitResult{
		ConfigPath:       configPath,
		InstallationUUID: config.Installation.UUID,
		RelyingPartyID:   config.Installation.RelyingPartyID,
		Recreated:        recreated,
	}, nil
}
