package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/runnerr0/sitetime/internal/storage"
)

// Execute implements the go-flags Commander interface for ShowCommand.
func (c *ShowCommand) Execute(args []string) error {
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

	return c.executeWithStore(ctx, store)
}

// executeWithStore prints one record, or every record keyed by domain.
// Output is always JSON.
func (c *ShowCommand) executeWithStore(ctx context.Context, store storage.Store) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if domain := strings.ToLower(strings.TrimSpace(c.Domain)); domain != "" {
		rec, err := store.Get(ctx, domain)
		if err != nil {
			return fmt.Errorf("get %s: %w", domain, err)
		}
		if rec.Empty() {
			return fmt.Errorf("no record for %s", domain)
		}
		return enc.Encode(map[string]*storage.DomainRecord{domain: rec})
	}

	records, err := store.All(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	out := make(map[string]storage.DomainRecord, len(records))
	for _, rec := range records {
		out[rec.Domain] = rec
	}
	return enc.Encode(out)
}
