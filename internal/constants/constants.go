// Package constants defines shared configuration constants.
package constants

import "time"

var (
	ConfigFile = "config.yaml"

	DefaultDir = ".dwarfkit"

	// ConfigDirEnv overrides the directory holding DefaultDir.
	ConfigDirEnv = "DWARFKIT_CONFIG"

	DefaultLogLevel = "warn"

	// DefaultOutputFormat is used by commands that support --format.
	DefaultOutputFormat = "text"

	// DefaultMaxDepth bounds DIE tree printing; zero means unbounded.
	DefaultMaxDepth = 0

	// DefaultLineLimit caps rows printed by the lines command.
	DefaultLineLimit = 0

	// DefaultIndexTimeout bounds a type index build.
	DefaultIndexTimeout = 5 * time.Minute
)
