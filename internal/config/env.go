package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SITETIME_"

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped; variables already set are not overwritten.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with SITETIME_* environment variables.
func ApplyEnv(cfg *Config) error {
	strs := map[string]*string{
		"DISPLAY_DEFAULT_PERIOD": &cfg.Display.DefaultPeriod,
		"DISPLAY_ICON_SERVICE":   &cfg.Display.IconService,
		"STORAGE_BACKEND":        &cfg.Storage.Backend,
		"STORAGE_PATH":           &cfg.Storage.Path,
		"STORAGE_SQLITE_FILE":    &cfg.Storage.SQLiteFile,
		"STORAGE_REDIS_URL":      &cfg.Storage.RedisURL,
		"STORAGE_REDIS_PREFIX":   &cfg.Storage.RedisPrefix,
		"DAEMON_HOST":            &cfg.Daemon.Host,
		"DAEMON_AUTH_TOKEN":      &cfg.Daemon.AuthToken,
		"LOGGING_LEVEL":          &cfg.Logging.Level,
		"LOGGING_FORMAT":         &cfg.Logging.Format,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"TRACKING_FLUSH_INTERVAL_MS":  &cfg.Tracking.FlushIntervalMS,
		"DISPLAY_REFRESH_INTERVAL_MS": &cfg.Display.RefreshIntervalMS,
		"DAEMON_PORT":                 &cfg.Daemon.Port,
	}
	for name, dst := range ints {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: invalid integer %q", EnvPrefix, name, v)
		}
		*dst = n
	}

	lists := map[string]*[]string{
		"TRACKING_EXCLUDE_DOMAINS": &cfg.Tracking.ExcludeDomains,
		"TRACKING_EXCLUDE_REGEX":   &cfg.Tracking.ExcludeRegex,
	}
	for name, dst := range lists {
		if v, ok := lookup(name); ok {
			*dst = splitList(v)
		}
	}

	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
