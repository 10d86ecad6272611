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

type reportJSON struct {
	Period  string          `json:"period"`
	Key     string          `json:"key"`
	Total   int64           `json:"total_ms"`
	Entries []reportRowJSON `json:"entries"`
}

type reportRowJSON struct {
	Rank     int          `json:"rank"`
	Domain   string       `json:"domain"`
	Millis   int64        `json:"ms"`
	Duration string       `json:"duration"`
	Icon     display.Icon `json:"icon"`
}

// Execute implements the go-flags Commander interface for ReportCommand.
func (c *ReportCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	p, err := resolvePeriod(c.Period, cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg, c.store)
	if err != nil {
		return err
	}
	defer closeStore()

	return c.executeWithStore(ctx, cfg, store, p)
}

// executeWithStore prints the ranking for p. A one-shot report has no
// earlier render, so it shows stored totals only.
func (c *ReportCommand) executeWithStore(ctx context.Context, cfg *config.Config, store storage.Store, p period.Period) error {
	if c.Limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}

	records, err := store.All(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	entries := display.NewAggregator(p, nil).Snapshot(records, "")
	if c.Limit > 0 && len(entries) > c.Limit {
		entries = entries[:c.Limit]
	}
	key := period.Key(p, time.Now())

	if c.globals != nil && c.globals.JSON {
		return c.printJSON(cfg, p, key, entries)
	}
	return c.printHuman(p, key, entries)
}

func (c *ReportCommand) printHuman(p period.Period, key string, entries []display.Entry) error {
	title := fmt.Sprintf("sitetime %s report (%s)", p, key)
	fmt.Println(title)
	for range title {
		fmt.Print("=")
	}
	fmt.Println()

	if len(entries) == 0 {
		fmt.Println("No data for this period")
		return nil
	}

	width := 0
	var total int64
	for _, e := range entries {
		width = max(width, len(e.Domain))
		total += e.Millis
	}
	for i, e := range entries {
		fmt.Printf("%3d. [%s] %-*s  %s\n", i+1, display.Placeholder(e.Domain), width, e.Domain, display.FormatDuration(e.Millis))
	}
	fmt.Println()
	fmt.Printf("Total:  %s\n", display.FormatDuration(total))
	return nil
}

func (c *ReportCommand) printJSON(cfg *config.Config, p period.Period, key string, entries []display.Entry) error {
	icons := newIconResolver(cfg)
	out := reportJSON{
		Period:  string(p),
		Key:     key,
		Entries: make([]reportRowJSON, len(entries)),
	}
	for i, e := range entries {
		out.Total += e.Millis
		out.Entries[i] = reportRowJSON{
			Rank:     i + 1,
			Domain:   e.Domain,
			Millis:   e.Millis,
			Duration: display.FormatDuration(e.Millis),
			Icon:     icons.Resolve(e.Domain, e.FaviconURL),
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
