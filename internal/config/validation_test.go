package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty version", mutate: func(c *Config) { c.Version = "" }},
		{name: "future version", mutate: func(c *Config) { c.Version = "2" }, wantErr: "version"},
		{name: "log level", mutate: func(c *Config) { c.Log.Level = "verbose" }, wantErr: "log.level"},
		{name: "format", mutate: func(c *Config) { c.Output.Format = "yaml" }, wantErr: "output.format"},
		{name: "color", mutate: func(c *Config) { c.Output.Color = "sometimes" }, wantErr: "output.color"},
		{name: "negative depth", mutate: func(c *Config) { c.Tree.MaxDepth = -1 }, wantErr: "tree.max_depth"},
		{name: "tag name", mutate: func(c *Config) { c.Tree.Tags = []string{"subprogram"} }, wantErr: "tree.tags"},
		{name: "line limit", mutate: func(c *Config) { c.Lines.Limit = -5 }, wantErr: "lines.limit"},
		{name: "timeout", mutate: func(c *Config) { c.Index.Timeout = -time.Second }, wantErr: "index.timeout"},
		{name: "index depth", mutate: func(c *Config) { c.Index.MaxDepth = -2 }, wantErr: "index.max_depth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	assert.Error(t, Validate(nil))
}
