package configs

import (
	"log"
	"os"
	"path/filepath"
)

type UserSettings struct {
	// UserConfigPath holds config.toml.
	UserConfigPath string

	// UserDataPath holds secrets.json, softtoken.json, and audit.jsonl.
	UserDataPath string
}

var UserTapvaultSettings *UserSettings

func init() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("error getting home directory: %s", err)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("error getting config directory: %s", err)
	}

	dataDir := os.Getenv("XDG_DATA_HOME")

	if dataDir == "" {
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	// Independent of the working directory, so it is ok to init here.
	// Tests swap this global for temp directories.
	UserTapvaultSettings = &UserSettings{
		UserConfigPath: filepath.Join(configDir, "tapvault"),
		UserDataPath:   filepath.Join(dataDir, "tapvault"),
	}
}

// ConfigFilePath returns the path of the installation's config.toml.
func ConfigFilePath() string {
	return filepath.Join(UserTapvaultSettings.UserConfigPath, "config.toml")
}

// StorePath returns the path of the secret store file.
func StorePath() string {
	return filepath.Join(UserTapvaultSettings.UserDataPath, "secrets.json")
}

// TokenStatePath returns the path of the software token's state file.
func TokenStatePath() string {
	return filepath.Join(UserTapvaultSettings.UserDataPath, "softtoken.json")
}
