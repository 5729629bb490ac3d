// Package config loads dwarfkit settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/dwarfkit/internal/constants"
)

// Loader reads and writes the config file.
type Loader struct {
	homeDir string
	lookup  LookupFunc
}

// NewLoader creates a loader. The base directory is resolved in this order:
//  1. DWARFKIT_CONFIG environment variable.
//  2. User home directory (~/).
//  3. The system temp directory, where no config file normally exists.
func NewLoader() *Loader {
	l := &Loader{lookup: os.LookupEnv}
	if dir := os.Getenv(constants.ConfigDirEnv); dir != "" {
		l.homeDir = dir
		return l
	}
	if home, err := os.UserHomeDir(); err == nil {
		l.homeDir = home
		return l
	}
	l.homeDir = filepath.Join(os.TempDir(), "dwarfkit-fallback")
	return l
}

// ConfigPath returns the path to the config file.
func (l *Loader) ConfigPath() string {
	return filepath.Join(l.homeDir, constants.DefaultDir, constants.ConfigFile)
}

// Load reads the default config file. A missing file yields defaults.
// Environment overrides are applied and the result validated.
func (l *Loader) Load() (*Config, error) {
	return l.LoadFile(l.ConfigPath())
}

// LoadFile is Load for an explicit path.
func (l *Loader) LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	//nolint:gosec // G304: path is chosen by the user.
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	lookup := l.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := LoadFromLookup(cfg, lookup); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to the default config path.
func (l *Loader) Save(cfg *Config) error {
	path := l.ConfigPath()

	//nolint:gosec // G301: directory needs standard permissions for traversal
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	//nolint:gosec // G306: config holds no secrets
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
