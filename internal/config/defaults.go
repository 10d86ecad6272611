package config

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Tracking: TrackingConfig{
			FlushIntervalMS: 1000,
			ExcludeDomains:  []string{},
			ExcludeRegex:    []string{},
		},
		Display: DisplayConfig{
			RefreshIntervalMS: 1000,
			DefaultPeriod:     "daily",
			IconService:       "https://www.google.com/s2/favicons?domain=%s",
		},
		Storage: StorageConfig{
			Backend:     BackendSQLite,
			Path:        "~/.config/sitetime",
			SQLiteFile:  "sitetime.db",
			RedisURL:    "",
			RedisPrefix: "sitetime:domain:",
		},
		Daemon: DaemonConfig{
			Host:      "127.0.0.1",
			Port:      8721,
			AuthToken: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
