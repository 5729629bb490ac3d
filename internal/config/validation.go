package config

import (
	"fmt"
	"strings"
)

var (
	logLevels    = []string{"trace", "debug", "info", "warn", "error"}
	outputFormat = []string{"text", "json", "csv"}
	colorModes   = []string{"auto", "always", "never"}
)

// Validate checks a loaded config and returns the first problem found.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Version != "" && cfg.Version != SchemaVersion {
		return fmt.Errorf("unsupported config version %q (expected %q)", cfg.Version, SchemaVersion)
	}
	if err := oneOf("log.level", cfg.Log.Level, logLevels); err != nil {
		return err
	}
	if err := oneOf("output.format", cfg.Output.Format, outputFormat); err != nil {
		return err
	}
	if err := oneOf("output.color", cfg.Output.Color, colorModes); err != nil {
		return err
	}
	if cfg.Tree.MaxDepth < 0 {
		return fmt.Errorf("tree.max_depth must be >= 0, got %d", cfg.Tree.MaxDepth)
	}
	for _, tag := range cfg.Tree.Tags {
		if !strings.HasPrefix(tag, "DW_TAG_") {
			return fmt.Errorf("tree.tags: %q is not a DW_TAG_ name", tag)
		}
	}
	if cfg.Lines.Limit < 0 {
		return fmt.Errorf("lines.limit must be >= 0, got %d", cfg.Lines.Limit)
	}
	if cfg.Index.Timeout < 0 {
		return fmt.Errorf("index.timeout must be >= 0, got %s", cfg.Index.Timeout)
	}
	if cfg.Index.MaxDepth < 0 {
		return fmt.Errorf("index.max_depth must be >= 0, got %d", cfg.Index.MaxDepth)
	}
	return nil
}

func oneOf(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", field, strings.Join(allowed, ", "), value)
}
