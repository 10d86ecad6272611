package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/runnerr0/sitetime/internal/period"
)

// Default config file path.
const DefaultConfigPath = "~/.config/sitetime/config.yaml"

// Config holds all sitetime configuration.
type Config struct {
	Tracking TrackingConfig `yaml:"tracking"`
	Display  DisplayConfig  `yaml:"display"`
	Storage  StorageConfig  `yaml:"storage"`
	Daemon   DaemonConfig   `yaml:"daemon"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type TrackingConfig struct {
	FlushIntervalMS int      `yaml:"flush_interval_ms"`
	ExcludeDomains  []string `yaml:"exclude_domains"`
	ExcludeRegex    []string `yaml:"exclude_regex"`
}

type DisplayConfig struct {
	RefreshIntervalMS int    `yaml:"refresh_interval_ms"`
	DefaultPeriod     string `yaml:"default_period"`
	IconService       string `yaml:"icon_service"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	SQLiteFile  string `yaml:"sqlite_file"`
	RedisURL    string `yaml:"redis_url"`
	RedisPrefix string `yaml:"redis_prefix"`
}

type DaemonConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// FlushInterval is the accounting flush period.
func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.Tracking.FlushIntervalMS) * time.Millisecond
}

// RefreshInterval is the display refresh period.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Display.RefreshIntervalMS) * time.Millisecond
}

// DaemonAddr is the host:port the daemon listens on.
func (c *Config) DaemonAddr() string {
	return net.JoinHostPort(c.Daemon.Host, strconv.Itoa(c.Daemon.Port))
}

// DaemonURL is the base URL clients use to reach the daemon.
func (c *Config) DaemonURL() string {
	return "http://" + c.DaemonAddr()
}

// DBPath returns the SQLite database path with ~ expanded.
func (c *Config) DBPath() (string, error) {
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.Tracking.FlushIntervalMS <= 0 {
		return fmt.Errorf("tracking.flush_interval_ms must be positive")
	}
	if c.Display.RefreshIntervalMS <= 0 {
		return fmt.Errorf("display.refresh_interval_ms must be positive")
	}
	if _, err := period.Parse(c.Display.DefaultPeriod); err != nil {
		return fmt.Errorf("display.default_period: %w", err)
	}
	switch c.Storage.Backend {
	case BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("storage.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	if c.Daemon.Port <= 0 || c.Daemon.Port > 65535 {
		return fmt.Errorf("daemon.port out of range: %d", c.Daemon.Port)
	}
	return nil
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	path, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
