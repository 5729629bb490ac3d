package config

import (
	"github.com/coral-mesh/dwarfkit/internal/constants"
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: SchemaVersion,
		Log: LogConfig{
			Level: constants.DefaultLogLevel,
		},
		Output: OutputConfig{
			Format: constants.DefaultOutputFormat,
			Color:  "auto",
		},
		Tree: TreeConfig{
			MaxDepth: constants.DefaultMaxDepth,
		},
		Lines: LinesConfig{
			Limit: constants.DefaultLineLimit,
		},
		Index: IndexConfig{
			Timeout: constants.DefaultIndexTimeout,
		},
	}
}
