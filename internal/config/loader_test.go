package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/dwarfkit/internal/constants"
)

func testLoader(t *testing.T, env map[string]string) *Loader {
	t.Helper()
	return &Loader{homeDir: t.TempDir(), lookup: mapLookup(env)}
}

func TestLoader_SaveAndLoad(t *testing.T) {
	loader := testLoader(t, nil)

	cfg := DefaultConfig()
	cfg.Log.Level = "debug"
	cfg.Output.Format = "json"
	cfg.Tree.MaxDepth = 4
	cfg.Tree.Tags = []string{"DW_TAG_structure_type"}
	cfg.Index.Timeout = 30 * time.Second

	require.NoError(t, loader.Save(cfg))
	assert.FileExists(t, loader.ConfigPath())

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoader_Load_NotExists(t *testing.T) {
	loader := testLoader(t, nil)

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_Load_PartialFileKeepsDefaults(t *testing.T) {
	loader := testLoader(t, nil)
	path := loader.ConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o600))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, constants.DefaultOutputFormat, cfg.Output.Format)
	assert.Equal(t, constants.DefaultIndexTimeout, cfg.Index.Timeout)
}

func TestLoader_Load_EnvOverridesFile(t *testing.T) {
	loader := testLoader(t, map[string]string{"DWARFKIT_LOG_LEVEL": "trace"})
	cfg := DefaultConfig()
	cfg.Log.Level = "info"
	require.NoError(t, loader.Save(cfg))

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "trace", loaded.Log.Level)
}

func TestLoader_LoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	loader := testLoader(t, nil)

	garbage := filepath.Join(dir, "garbage.yaml")
	require.NoError(t, os.WriteFile(garbage, []byte("log: [unclosed"), 0o600))
	_, err := loader.LoadFile(garbage)
	assert.ErrorContains(t, err, "failed to parse config")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("output:\n  format: xml\n"), 0o600))
	_, err = loader.LoadFile(invalid)
	assert.ErrorContains(t, err, "output.format")

	_, err = testLoader(t, map[string]string{"DWARFKIT_MAX_DEPTH": "-"}).LoadFile(filepath.Join(dir, "none.yaml"))
	assert.ErrorContains(t, err, "environment")
}

func TestNewLoader_ConfigDirEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(constants.ConfigDirEnv, dir)

	loader := NewLoader()
	assert.Equal(t, filepath.Join(dir, constants.DefaultDir, constants.ConfigFile), loader.ConfigPath())
}
