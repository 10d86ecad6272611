package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1000, cfg.Tracking.FlushIntervalMS)
	assert.Empty(t, cfg.Tracking.ExcludeDomains)
	assert.Empty(t, cfg.Tracking.ExcludeRegex)
	assert.Equal(t, 1000, cfg.Display.RefreshIntervalMS)
	assert.Equal(t, "daily", cfg.Display.DefaultPeriod)
	assert.Contains(t, cfg.Display.IconService, "%s")
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "~/.config/sitetime", cfg.Storage.Path)
	assert.Equal(t, "sitetime.db", cfg.Storage.SQLiteFile)
	assert.Equal(t, "sitetime:domain:", cfg.Storage.RedisPrefix)
	assert.Equal(t, "127.0.0.1", cfg.Daemon.Host)
	assert.Equal(t, 8721, cfg.Daemon.Port)
	assert.Empty(t, cfg.Daemon.AuthToken)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)

	assert.NoError(t, cfg.Validate())
}

func TestDerivedValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tracking.FlushIntervalMS = 250
	cfg.Display.RefreshIntervalMS = 2000

	assert.Equal(t, 250*time.Millisecond, cfg.FlushInterval())
	assert.Equal(t, 2*time.Second, cfg.RefreshInterval())
	assert.Equal(t, "127.0.0.1:8721", cfg.DaemonAddr())
	assert.Equal(t, "http://127.0.0.1:8721", cfg.DaemonURL())

	cfg.Storage.Path = "/var/lib/sitetime"
	p, err := cfg.DBPath()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/sitetime/sitetime.db", p)
}

func TestDBPathExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	p, err := DefaultConfig().DBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "sitetime", "sitetime.db"), p)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero flush interval", func(c *Config) { c.Tracking.FlushIntervalMS = 0 }},
		{"negative refresh interval", func(c *Config) { c.Display.RefreshIntervalMS = -1 }},
		{"unknown period", func(c *Config) { c.Display.DefaultPeriod = "yearly" }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "postgres" }},
		{"redis without url", func(c *Config) { c.Storage.Backend = BackendRedis }},
		{"port out of range", func(c *Config) { c.Daemon.Port = 70000 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateAcceptsRedisWithURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Backend = BackendRedis
	cfg.Storage.RedisURL = "redis://localhost:6379/0"
	assert.NoError(t, cfg.Validate())
}

func TestLoadValidYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
tracking:
  flush_interval_ms: 500
display:
  default_period: "weekly"
daemon:
  port: 9999
logging:
  level: "debug"
`
	err := os.WriteFile(cfgPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, 500, cfg.Tracking.FlushIntervalMS)
	assert.Equal(t, "weekly", cfg.Display.DefaultPeriod)
	assert.Equal(t, 9999, cfg.Daemon.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Non-overridden values remain defaults
	assert.Equal(t, 1000, cfg.Display.RefreshIntervalMS)
	assert.Equal(t, "127.0.0.1", cfg.Daemon.Host)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "~/.config/sitetime", cfg.Storage.Path)
}

func TestLoadInvalidYAMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	err := os.WriteFile(cfgPath, []byte(":::not valid yaml{{{"), 0644)
	require.NoError(t, err)

	_, err = Load(cfgPath)
	assert.Error(t, err)
}

func TestLoadNonExistentFileReturnsError(t *testing.T) {
	_, err := Load("/tmp/nonexistent_path_12345/config.yaml")
	assert.Error(t, err)
}

func TestLoadOrCreateCreatesDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sub", "deep", "config.yaml")

	cfg, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)

	// Should return defaults
	assert.Equal(t, 1000, cfg.Tracking.FlushIntervalMS)
	assert.Equal(t, "daily", cfg.Display.DefaultPeriod)
	assert.Equal(t, "127.0.0.1", cfg.Daemon.Host)

	// File should now exist on disk
	_, statErr := os.Stat(cfgPath)
	assert.NoError(t, statErr)

	// File should be valid YAML loadable again
	cfg2, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Daemon.Port, cfg2.Daemon.Port)
	assert.Equal(t, cfg.Storage.RedisPrefix, cfg2.Storage.RedisPrefix)
}

func TestLoadOrCreateLoadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
storage:
  backend: memory
`
	err := os.WriteFile(cfgPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	cfg, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	// Other fields remain defaults
	assert.Equal(t, "sitetime.db", cfg.Storage.SQLiteFile)
}

func TestLoadWithExclusions(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
tracking:
  exclude_domains:
    - "bank.com"
    - "secret.org"
  exclude_regex:
    - '.*\.internal$'
`
	err := os.WriteFile(cfgPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"bank.com", "secret.org"}, cfg.Tracking.ExcludeDomains)
	assert.Equal(t, []string{`.*\.internal$`}, cfg.Tracking.ExcludeRegex)
}
