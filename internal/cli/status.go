package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/sitetime/internal/config"
	"github.com/runnerr0/sitetime/internal/display"
	"github.com/runnerr0/sitetime/internal/period"
	"github.com/runnerr0/sitetime/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string `json:"version"`
	Backend           string `json:"backend"`
	DatabasePath      string `json:"database_path,omitempty"`
	DatabaseSizeBytes int64  `json:"database_size_bytes,omitempty"`
	SchemaVersion     int    `json:"schema_version,omitempty"`
	TrackedDomains    int    `json:"tracked_domains"`
	TodayKey          string `json:"today_key"`
	TodayMillis       int64  `json:"today_ms"`
	DaemonURL         string `json:"daemon_url"`
	DaemonRunning     bool   `json:"daemon_running"`
	ActiveDomain      string `json:"active_domain,omitempty"`
}

// sqlStats is implemented by stores backed by a SQL database.
type sqlStats interface {
	DatabaseSize(ctx context.Context) int64
	SchemaVersion(ctx context.Context) (int, error)
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg, c.store)
	if err != nil {
		return err
	}
	defer closeStore()

	return c.executeWithStore(ctx, cfg, store)
}

// executeWithStore runs status against a provided store (for testing).
func (c *StatusCommand) executeWithStore(ctx context.Context, cfg *config.Config, store storage.Store) error {
	records, err := store.All(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	out := statusJSON{
		Version:        c.version,
		Backend:        cfg.Storage.Backend,
		TrackedDomains: len(records),
		TodayKey:       period.DayKey(time.Now()),
		DaemonURL:      cfg.DaemonURL(),
	}
	for i := range records {
		out.TodayMillis += records[i].Total(period.Daily, out.TodayKey)
	}

	if cfg.Storage.Backend == config.BackendSQLite {
		if p, err := cfg.DBPath(); err == nil {
			out.DatabasePath = p
		}
	}
	if s, ok := store.(sqlStats); ok {
		out.DatabaseSizeBytes = s.DatabaseSize(ctx)
		if v, err := s.SchemaVersion(ctx); err == nil {
			out.SchemaVersion = v
		}
	}

	client := newDaemonClient(cfg)
	if _, err := client.Status(ctx); err == nil {
		out.DaemonRunning = true
		out.ActiveDomain = client.ActiveDomain(ctx)
	}

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	c.printStatusHuman(out)
	return nil
}

func (c *StatusCommand) printStatusHuman(st statusJSON) {
	fmt.Println("sitetime Status")
	fmt.Println("===============")
	fmt.Printf("Version:       %s\n", st.Version)
	fmt.Printf("Backend:       %s\n", st.Backend)
	if st.DatabasePath != "" {
		fmt.Printf("Database:      %s (%s, schema v%d)\n", st.DatabasePath, formatBytes(st.DatabaseSizeBytes), st.SchemaVersion)
	}
	fmt.Printf("Domains:       %s\n", formatNumber(int64(st.TrackedDomains)))
	fmt.Printf("Today:         %s (%s)\n", display.FormatDuration(st.TodayMillis), st.TodayKey)

	fmt.Println()
	if st.DaemonRunning {
		fmt.Printf("Daemon:        running (%s)\n", st.DaemonURL)
		if st.ActiveDomain != "" {
			fmt.Printf("Active:        %s\n", st.ActiveDomain)
		} else {
			fmt.Println("Active:        none")
		}
	} else {
		fmt.Printf("Daemon:        not running (%s)\n", st.DaemonURL)
	}
}
