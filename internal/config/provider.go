// SPDX-License-Identifier: MPL-2.0

package config

import "context"

type (
	// LoadOptions selects where configuration is read from. The zero value
	// searches the config directory and then the working directory.
	LoadOptions struct {
		// ConfigFilePath names the file to load; it must exist.
		ConfigFilePath string
		// ConfigDirPath replaces ConfigDir() in the search.
		ConfigDirPath string
	}

	// Provider loads configuration. Commands receive one so tests can inject
	// fixed settings.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	cueProvider struct{}
)

// configDirOverride replaces ConfigDir() when non-empty.
var configDirOverride string

// NewProvider returns the Provider backed by CUE files and STAGECRAFT_*
// environment variables.
func NewProvider() Provider { return cueProvider{} }

func (cueProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	return cfg, err
}

// LoadWithPath loads like Provider.Load and also returns the file that was
// read, or "" when only defaults and environment overrides applied.
func LoadWithPath(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	return loadWithOptions(ctx, opts)
}

// SetConfigDirOverride makes ConfigDir return dir. Tests use it to keep away
// from the real user configuration.
func SetConfigDirOverride(dir string) { configDirOverride = dir }

// Reset undoes SetConfigDirOverride.
func Reset() { configDirOverride = "" }
