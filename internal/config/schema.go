package config

import (
	"time"
)

// SchemaVersion is the configuration schema version.
const SchemaVersion = "1"

// Config represents the ~/.dwarfkit/config.yaml file. Every field can be
// overridden by the environment variable named in its env tag.
type Config struct {
	Version string       `yaml:"version"`
	Log     LogConfig    `yaml:"log"`
	Output  OutputConfig `yaml:"output"`
	Tree    TreeConfig   `yaml:"tree"`
	Lines   LinesConfig  `yaml:"lines"`
	Index   IndexConfig  `yaml:"index"`
}

// LogConfig controls diagnostics written to stderr.
type LogConfig struct {
	Level  string `yaml:"level" env:"DWARFKIT_LOG_LEVEL"` // trace, debug, info, warn, error
	Pretty bool   `yaml:"pretty" env:"DWARFKIT_LOG_PRETTY"`
}

// OutputConfig controls command output.
type OutputConfig struct {
	Format string `yaml:"format" env:"DWARFKIT_FORMAT"` // text, json or csv
	Color  string `yaml:"color" env:"DWARFKIT_COLOR"`   // auto, always or never
}

// TreeConfig controls the tree command.
type TreeConfig struct {
	MaxDepth int `yaml:"max_depth" env:"DWARFKIT_MAX_DEPTH"`
	// Tags limits printed entries to these tag names (e.g. DW_TAG_subprogram).
	Tags []string `yaml:"tags,omitempty" env:"DWARFKIT_TREE_TAGS"`
}

// LinesConfig controls the lines command.
type LinesConfig struct {
	Limit int `yaml:"limit" env:"DWARFKIT_LINE_LIMIT"`
}

// IndexConfig controls the types command.
type IndexConfig struct {
	Timeout  time.Duration `yaml:"timeout" env:"DWARFKIT_INDEX_TIMEOUT"`
	MaxDepth int           `yaml:"max_depth" env:"DWARFKIT_INDEX_MAX_DEPTH"`
}
