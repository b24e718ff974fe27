// Package configs manages installation configuration for tapvault.
//
// Configuration is stored in TOML format in the per-user config directory:
//
//   - Config file: ~/.config/tapvault/config.toml
//   - Data files: $XDG_DATA_HOME/tapvault (secret store, token state, audit log)
//
// # Installation Configuration
//
// The config file stores:
//   - Installation identity (UUID, generated once by `tapvault init`)
//   - Relying party id under which every credential is enrolled
//   - Authenticator settings (kind, presence delay, ceremony timeout)
//   - Resolver settings (provider id, whole-request timeout)
//
// The relying party id is constant across all records created by one
// installation; changing it after secrets exist makes their credentials
// unresolvable.
//
// # Settings
//
// Global path settings are initialized at startup in UserTapvaultSettings.
// Tests swap this global for temporary directories. Path helpers
// (ConfigFilePath, StorePath, TokenStatePath) derive file locations
// from it, and the store path is threaded explicitly into store.New so
// nothing below the workflow layer reads ambient state.
package configs
