package configs

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	terrors "github.com/tapvault/tapvault/internal/errors"
)

// Defaults applied by DefaultConfig and filled in for fields a hand-edited
// config file leaves empty.
const (
	DefaultRelyingPartyID    = "tapvault.local"
	DefaultProvider          = "tapvault"
	DefaultAuthenticatorKind = "softtoken"

	defaultPresenceDelayMs          = 500
	defaultAuthenticatorTimeoutSecs = 30
	defaultResolverTimeoutSecs      = 120
)

type Config struct {
	Installation  Installation  `toml:"installation"`
	Authenticator Authenticator `toml:"authenticator"`
	Resolver      Resolver      `toml:"resolver"`
}

type Installation struct {
	// UUID identifies this installation; generated once at init.
	UUID string `toml:"installation_uuid"`

	// RelyingPartyID scopes every enrolled credential. Constant across all
	// records created by one installation.
	RelyingPartyID string `toml:"relying_party_id"`

	CreatedAt time.Time `toml:"created_at"`
}

type Authenticator struct {
	// Kind selects the gate implementation. Only "softtoken" is built in.
	Kind string `toml:"kind"`

	// PresenceDelayMs simulates the wait for a touch on the software token.
	PresenceDelayMs int `toml:"presence_delay_ms"`

	// TimeoutSeconds bounds a single enroll or verify ceremony.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

type Resolver struct {
	// Provider is the identifier this resolver answers to in protocol requests.
	Provider string `toml:"provider"`

	// TimeoutSeconds bounds one whole request batch.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// DefaultConfig returns a fresh configuration with a new installation UUID.
func DefaultConfig() *Config {
	return &Config{
		Installation: Installation{
			UUID:           GenerateInstallationUUID(),
			RelyingPartyID: DefaultRelyingPartyID,
			CreatedAt:      time.Now().UTC(),
		},
		Authenticator: Authenticator{
			Kind:            DefaultAuthenticatorKind,
			PresenceDelayMs: defaultPresenceDelayMs,
			TimeoutSeconds:  defaultAuthenticatorTimeoutSecs,
		},
		Resolver: Resolver{
			Provider:       DefaultProvider,
			TimeoutSeconds: defaultResolverTimeoutSecs,
		},
	}
}

// GenerateInstallationUUID generates a new UUID for the installation.
func GenerateInstallationUUID() string {
	return uuid.New().String()
}

// LoadConfig loads the installation configuration.
//
// Returns ErrNotInitialized if no config file exists yet and ErrInvalidConfig
// if the file cannot be parsed.
func LoadConfig() (*Config, error) {
	configPath := ConfigFilePath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, terrors.ErrNotInitialized
	}

	config := &Config{}
	if err := LoadTOML(configPath, config); err != nil {
		return nil, fmt.Errorf("%w: %v", terrors.ErrInvalidConfig, err)
	}

	config.applyDefaults()
	return config, nil
}

// SaveConfig saves the installation configuration.
func SaveConfig(config *Config) error {
	if err := SaveTOML(ConfigFilePath(), config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// applyDefaults fills empty fields so a partially hand-edited file still
// yields a usable configuration.
func (c *Config) applyDefaults() {
	if c.Installation.RelyingPartyID == "" {
		c.Installation.RelyingPartyID = DefaultRelyingPartyID
	}
	if c.Authenticator.Kind == "" {
		c.Authenticator.Kind = DefaultAuthenticatorKind
	}
	if c.Authenticator.TimeoutSeconds <= 0 {
		c.Authenticator.TimeoutSeconds = defaultAuthenticatorTimeoutSecs
	}
	if c.Resolver.Provider == "" {
		c.Resolver.Provider = DefaultProvider
	}
	if c.Resolver.TimeoutSeconds <= 0 {
		c.Resolver.TimeoutSeconds = defaultResolverTimeoutSecs
	}
}

// PresenceDelay returns the software token's simulated touch wait.
func (c *Config) PresenceDelay() time.Duration {
	return time.Duration(c.Authenticator.PresenceDelayMs) * time.Millisecond
}

// AuthenticatorTimeout returns the deadline for one ceremony.
func (c *Config) AuthenticatorTimeout() time.Duration {
	return time.Duration(c.Authenticator.TimeoutSeconds) * time.Second
}

// ResolverTimeout returns the deadline for one whole request batch.
func (c *Config) ResolverTimeout() time.Duration {
	return time.Duration(c.Resolver.TimeoutSeconds) * time.Second
}
