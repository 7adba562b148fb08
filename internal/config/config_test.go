package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheatsley/profiler/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, CurrentConfigVersion, cfg.Version)
	assert.Equal(t, time.Second, cfg.Interval)
	assert.Equal(t, 250*time.Millisecond, cfg.RenderInterval)
	assert.Equal(t, 60, cfg.HistoryDepth)
	assert.True(t, cfg.Counters.CPU)
	assert.False(t, cfg.Counters.PerCore)
	assert.True(t, cfg.Counters.Mem)
	assert.True(t, cfg.Counters.GPU)
	assert.False(t, cfg.Plain)

	require.NoError(t, Validate(cfg))
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
version: 1
interval: 2s
render_interval: 500ms
history_depth: 120
counters:
  cpu: true
  per_core: true
  mem: true
  gpu: false
plain: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.Equal(t, 500*time.Millisecond, cfg.RenderInterval)
	assert.Equal(t, 120, cfg.HistoryDepth)
	assert.True(t, cfg.Counters.PerCore)
	assert.False(t, cfg.Counters.GPU)
	assert.True(t, cfg.Plain)
}

func TestLoadPartialConfigMergesDefaults(t *testing.T) {
	path := writeConfig(t, `
interval: 5s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.Equal(t, 250*time.Millisecond, cfg.RenderInterval)
	assert.Equal(t, 60, cfg.HistoryDepth)
	assert.True(t, cfg.Counters.CPU)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "interval: [not a duration\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults valid", mutate: func(c *Config) {}},
		{name: "newer version", mutate: func(c *Config) { c.Version = CurrentConfigVersion + 1 }, wantErr: true},
		{name: "interval too small", mutate: func(c *Config) { c.Interval = 10 * time.Millisecond }, wantErr: true},
		{name: "interval at floor", mutate: func(c *Config) { c.Interval = MinInterval }},
		{name: "render interval too small", mutate: func(c *Config) { c.RenderInterval = time.Millisecond }, wantErr: true},
		{name: "history depth zero", mutate: func(c *Config) { c.HistoryDepth = 0 }, wantErr: true},
		{name: "history depth too large", mutate: func(c *Config) { c.HistoryDepth = MaxHistoryDepth + 1 }, wantErr: true},
		{name: "all counters disabled", mutate: func(c *Config) {
			c.Counters = CountersConfig{}
		}, wantErr: true},
		{name: "per core without cpu", mutate: func(c *Config) {
			c.Counters.CPU = false
			c.Counters.PerCore = true
		}, wantErr: true},
		{name: "gpu only", mutate: func(c *Config) {
			c.Counters = CountersConfig{GPU: true}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrConfig))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFindExplicitMissing(t *testing.T) {
	_, err := Find(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestFindExplicitPresent(t *testing.T) {
	path := writeConfig(t, "interval: 1s\n")

	found, err := Find(path)
	require.NoError(t, err)
	assert.Equal(t, path, found)
}

func TestFindCurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("interval: 1s\n"), 0o644))
	t.Chdir(dir)

	found, err := Find("")
	require.NoError(t, err)
	assert.Equal(t, path, found)
}

func TestFindParentDirectoryStopsAtGitRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("interval: 1s\n"), 0o644))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	found, err := Find("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ConfigFileName), found)
}

func TestWriteRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interval = 3 * time.Second
	cfg.Counters.PerCore = true

	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, Write(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, loaded.Interval)
	assert.True(t, loaded.Counters.PerCore)
	assert.Equal(t, cfg.HistoryDepth, loaded.HistoryDepth)
}

func TestLoadOrDefaultNoConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Interval, cfg.Interval)
}
