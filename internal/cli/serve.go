package cli

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/runnerr0/sitetime/internal/config"
	"github.com/runnerr0/sitetime/internal/daemon"
	"github.com/runnerr0/sitetime/internal/metrics"
	"github.com/runnerr0/sitetime/internal/storage"
	"github.com/runnerr0/sitetime/internal/tracker"
)

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Daemon.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Logging.Level = c.LogLevel
	}

	logger, err := newLogger(cfg, c.globals)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, c.store)
	if err != nil {
		return err
	}
	defer closeStore()

	ln, err := net.Listen("tcp", cfg.DaemonAddr())
	if err != nil {
		return err
	}

	return c.run(ctx, cfg, store, ln, logger)
}

// run serves on ln until ctx is cancelled. The flush loop and the HTTP
// server share one errgroup, so either failing stops both.
func (c *ServeCommand) run(ctx context.Context, cfg *config.Config, store storage.Store, ln net.Listener, logger zerolog.Logger) error {
	exclusions, err := tracker.NewExclusions(cfg.Tracking.ExcludeDomains, cfg.Tracking.ExcludeRegex)
	if err != nil {
		ln.Close()
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	acc := tracker.NewAccountant(store,
		tracker.WithLogger(logger.With().Str("component", "tracker").Logger()),
		tracker.WithMetrics(metrics.New(reg)),
		tracker.WithExclusions(exclusions),
	)
	srv := daemon.NewServer(acc, store, daemon.Options{
		Version:   c.version,
		AuthToken: cfg.Daemon.AuthToken,
		Gatherer:  reg,
		Logger:    logger.With().Str("component", "daemon").Logger(),
	})

	logger.Info().
		Str("version", c.version).
		Str("backend", cfg.Storage.Backend).
		Str("addr", ln.Addr().String()).
		Msg("sitetime starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return acc.Run(gctx, cfg.FlushInterval())
	})
	g.Go(func() error {
		return srv.Serve(gctx, ln)
	})
	return g.Wait()
}
