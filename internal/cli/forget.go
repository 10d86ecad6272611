package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/runnerr0/sitetime/internal/storage"
)

// Execute implements the go-flags Commander interface for ForgetCommand.
func (c *ForgetCommand) Execute(args []string) error {
	if strings.TrimSpace(c.Domain) == "" {
		return fmt.Errorf("--domain is required for forget command")
	}

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

func (c *ForgetCommand) executeWithStore(ctx context.Context, store storage.Store) error {
	domain := strings.ToLower(strings.TrimSpace(c.Domain))
	if err := store.Delete(ctx, domain); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no record for %s", domain)
		}
		return fmt.Errorf("forget %s: %w", domain, err)
	}

	if c.globals != nil && c.globals.JSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"forgotten": true,
			"domain":    domain,
		})
	}

	fmt.Printf("Forgot %s.\n", domain)
	return nil
}
