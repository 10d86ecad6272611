package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/runnerr0/sitetime/internal/tui"
)

// Execute implements the go-flags Commander interface for WatchCommand.
func (c *WatchCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	p, err := resolvePeriod(c.Period, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, c.store)
	if err != nil {
		return err
	}
	defer closeStore()

	client := newDaemonClient(cfg)
	model := tui.New(store, client.ActiveDomain, p, cfg.RefreshInterval(), nil)
	return tui.Run(ctx, model)
}
