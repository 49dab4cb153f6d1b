package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Defaults(t *testing.T) {
	cfg, err := NewManager("").Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 0.1, cfg.Model.Contamination)
	assert.Equal(t, 100, cfg.Model.NumTrees)
	assert.Equal(t, 256, cfg.Model.SampleSize)
	assert.Equal(t, int64(42), cfg.Model.Seed)
	assert.Equal(t, 10000, cfg.Bootstrap.Samples)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestManager_MissingFileIsFine(t *testing.T) {
	cfg, err := NewManager(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Server.Port)
}

func TestManager_FileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8090
  rate_limit_per_minute: 120
model:
  num_trees: 50
logging:
  level: debug
  format: console
`), 0o600))

	cfg, err := NewManager(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, 120, cfg.Server.RateLimitPerMinute)
	assert.Equal(t, 50, cfg.Model.NumTrees)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	// Untouched keys keep defaults.
	assert.Equal(t, 256, cfg.Model.SampleSize)
}

func TestManager_EnvOverrides(t *testing.T) {
	t.Setenv("SENTINEL_SERVER_PORT", "6001")
	t.Setenv("SENTINEL_LOGGING_LEVEL", "warn")

	cfg, err := NewManager("").Load()
	require.NoError(t, err)

	assert.Equal(t, 6001, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		cfg, err := NewManager("").Load()
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Model.Contamination = 0.9
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Bootstrap.Samples = 50
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())
}
