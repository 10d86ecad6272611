package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/runnerr0/sitetime/internal/config"
	"github.com/runnerr0/sitetime/internal/daemon"
	"github.com/runnerr0/sitetime/internal/display"
	"github.com/runnerr0/sitetime/internal/logging"
	"github.com/runnerr0/sitetime/internal/period"
	"github.com/runnerr0/sitetime/internal/storage"
)

// dotEnvFile is loaded from the working directory when present.
const dotEnvFile = ".env"

// loadConfig resolves configuration.
// Priority: SITETIME_* environment > --config file > default config file.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if globals != nil && globals.Config != "" {
		cfg, err = config.Load(globals.Config)
	} else {
		cfg, err = config.LoadOrCreate()
	}
	if err != nil {
		return nil, err
	}

	if err := config.LoadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the stderr logger. --verbose forces debug level.
func newLogger(cfg *config.Config, globals *GlobalFlags) (zerolog.Logger, error) {
	level := cfg.Logging.Level
	if globals != nil && globals.Verbose {
		level = "debug"
	}
	return logging.New(level, cfg.Logging.Format, os.Stderr)
}

// openStore returns injected when set. Otherwise it opens the configured
// backend; the returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, injected storage.Store) (storage.Store, func(), error) {
	if injected != nil {
		return injected, func() {}, nil
	}

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return storage.NewMemoryStore(), func() {}, nil
	case config.BackendRedis:
		client, err := storage.NewRedisClient(ctx, cfg.Storage.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewRedisStore(client, cfg.Storage.RedisPrefix), func() { client.Close() }, nil
	default:
		dbPath, err := cfg.DBPath()
		if err != nil {
			return nil, nil, err
		}
		store, db, err := openSQLiteStore(ctx, dbPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			store.Close()
			db.Close()
		}, nil
	}
}

// openSQLiteStore opens the database at dbPath, runs migrations, and
// returns a ready-to-use store and the underlying *sql.DB.
func openSQLiteStore(ctx context.Context, dbPath string) (*storage.SQLiteStore, *sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	runner := storage.NewMigrationRunner(db)
	if err := runner.Run(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	store, err := storage.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create store: %w", err)
	}

	return store, db, nil
}

// newDaemonClient returns a client for the configured daemon.
func newDaemonClient(cfg *config.Config) *daemon.Client {
	return daemon.NewClient(cfg.DaemonURL(), cfg.Daemon.AuthToken, 0)
}

// newIconResolver builds the icon fallback chain from config.
func newIconResolver(cfg *config.Config) display.IconResolver {
	if cfg.Display.IconService == "" {
		return display.IconResolver{}
	}
	return display.IconResolver{Lookup: display.TemplateLookup{Template: cfg.Display.IconService}}
}

// resolvePeriod parses flag, falling back to the configured default.
func resolvePeriod(flag string, cfg *config.Config) (period.Period, error) {
	if strings.TrimSpace(flag) == "" {
		flag = cfg.Display.DefaultPeriod
	}
	return period.Parse(flag)
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
		if len(s) > remainder {
			result.WriteString(",")
		}
	}
	for i := remainder; i < len(s); i += 3 {
		if i > remainder {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}
