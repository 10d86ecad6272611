// Package tracker attributes active-tab wall-clock time to the single
// foreground domain and flushes it into the store on a fixed tick.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/runnerr0/sitetime/internal/clock"
	"github.com/runnerr0/sitetime/internal/metrics"
	"github.com/runnerr0/sitetime/internal/period"
	"github.com/runnerr0/sitetime/internal/storage"
)

// DefaultFlushInterval is how often the open interval is written to the store.
const DefaultFlushInterval = time.Second

// State is the in-memory tracking state. It is never persisted.
// IntervalStart is non-zero only while Tracking with an ActiveDomain.
type State struct {
	ActiveDomain  string
	IntervalStart time.Time
	Tracking      bool
}

// Accountant owns the tracking state and reacts to tab events. Events and
// flush ticks are serialized, so at most one domain accrues time at once.
type Accountant struct {
	mu         sync.Mutex
	store      storage.Store
	clock      clock.Clock
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	exclusions *Exclusions
	state      State
}

// Option configures an Accountant.
type Option func(*Accountant)

func WithClock(c clock.Clock) Option {
	return func(a *Accountant) { a.clock = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(a *Accountant) { a.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Accountant) { a.metrics = m }
}

// WithExclusions makes excluded domains behave like untrackable URLs.
func WithExclusions(e *Exclusions) Option {
	return func(a *Accountant) { a.exclusions = e }
}

// NewAccountant returns an idle Accountant writing into store.
func NewAccountant(store storage.Store, opts ...Option) *Accountant {
	a := &Accountant{
		store:  store,
		clock:  clock.Real{},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State returns a copy of the current tracking state.
func (a *Accountant) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// ActiveDomain returns the foreground domain, or "" when none.
func (a *Accountant) ActiveDomain() string {
	return a.State().ActiveDomain
}

// OnTabActivated handles a switch to another tab.
func (a *Accountant) OnTabActivated(ctx context.Context, rawURL, faviconURL string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.metrics.IncrementTabEvent("activated")
	return a.switchLocked(ctx, rawURL, faviconURL)
}

// OnActiveTabURLChanged handles the active tab navigating to rawURL. Even a
// navigation within the same domain closes the interval and opens a new one.
func (a *Accountant) OnActiveTabURLChanged(ctx context.Context, rawURL, faviconURL string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.metrics.IncrementTabEvent("navigated")
	return a.switchLocked(ctx, rawURL, faviconURL)
}

// OnFaviconChanged stores a new icon for the active domain. Timing is untouched.
func (a *Accountant) OnFaviconChanged(ctx context.Context, faviconURL string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.metrics.IncrementTabEvent("favicon")
	if a.state.ActiveDomain == "" || faviconURL == "" {
		return nil
	}
	return a.upsertFaviconLocked(ctx, a.state.ActiveDomain, faviconURL)
}

// StartTracking opens an interval for domain. It does nothing when domain is
// empty, excluded, or already has an open interval.
func (a *Accountant) StartTracking(ctx context.Context, domain, faviconURL string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.exclusions.Excluded(domain) {
		return nil
	}
	return a.startLocked(ctx, domain, faviconURL)
}

// StopTracking flushes the open interval, if any, and stops accruing.
func (a *Accountant) StopTracking(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopLocked(ctx)
}

// FlushTick adds the time elapsed since the interval started to the active
// domain and starts the next interval where this one ended. The interval is
// advanced even when the store write fails; that time is lost.
func (a *Accountant) FlushTick(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.state.Tracking || a.state.ActiveDomain == "" {
		return nil
	}
	return a.flushLocked(ctx, a.clock.Now())
}

// Run flushes every interval until ctx is cancelled, then closes the open
// interval so a clean shutdown loses nothing.
func (a *Accountant) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info().Dur("interval", interval).Msg("flush loop started")

	for {
		select {
		case <-ticker.C:
			if err := a.FlushTick(ctx); err != nil {
				a.logger.Error().Err(err).Msg("flush failed")
			}
		case <-ctx.Done():
			if err := a.StopTracking(context.WithoutCancel(ctx)); err != nil {
				a.logger.Error().Err(err).Msg("final flush failed")
			}
			a.logger.Info().Msg("flush loop stopped")
			return nil
		}
	}
}

func (a *Accountant) switchLocked(ctx context.Context, rawURL, faviconURL string) error {
	stopErr := a.stopLocked(ctx)

	domain := DomainFromURL(rawURL)
	if a.exclusions.Excluded(domain) {
		domain = ""
	}
	a.state.ActiveDomain = domain
	if domain == "" {
		a.logger.Debug().Str("url", rawURL).Msg("untrackable url, tracking paused")
		return stopErr
	}

	return errors.Join(stopErr, a.startLocked(ctx, domain, faviconURL))
}

func (a *Accountant) startLocked(ctx context.Context, domain, faviconURL string) error {
	if domain == "" {
		return nil
	}
	if a.state.Tracking && a.state.ActiveDomain == domain {
		return nil
	}

	var stopErr error
	if a.state.Tracking {
		stopErr = a.stopLocked(ctx)
	}

	a.state = State{
		ActiveDomain:  domain,
		IntervalStart: a.clock.Now(),
		Tracking:      true,
	}
	a.metrics.SetTracking(true)
	a.logger.Debug().Str("domain", domain).Msg("tracking started")

	if faviconURL == "" {
		return stopErr
	}
	return errors.Join(stopErr, a.upsertFaviconLocked(ctx, domain, faviconURL))
}

func (a *Accountant) stopLocked(ctx context.Context) error {
	if !a.state.Tracking || a.state.ActiveDomain == "" {
		return nil
	}

	err := a.flushLocked(ctx, a.clock.Now())
	a.state.Tracking = false
	a.state.IntervalStart = time.Time{}
	a.metrics.SetTracking(false)
	a.logger.Debug().Str("domain", a.state.ActiveDomain).Msg("tracking stopped")
	return err
}

// flushLocked moves whole milliseconds from the open interval into the
// store. The sub-millisecond remainder stays in the next interval.
func (a *Accountant) flushLocked(ctx context.Context, now time.Time) error {
	domain := a.state.ActiveDomain
	elapsed := now.Sub(a.state.IntervalStart).Milliseconds()
	if elapsed <= 0 {
		return nil
	}
	a.state.IntervalStart = a.state.IntervalStart.Add(time.Duration(elapsed) * time.Millisecond)

	rec, err := a.store.Get(ctx, domain)
	if err != nil {
		a.metrics.IncrementStoreErrors()
		return fmt.Errorf("load %s: %w", domain, err)
	}

	rec.Add(period.KeysAt(now), elapsed)

	if err := a.store.Set(ctx, rec); err != nil {
		a.metrics.IncrementStoreErrors()
		return fmt.Errorf("save %s: %w", domain, err)
	}

	a.metrics.ObserveFlush(elapsed)
	a.logger.Debug().Str("domain", domain).Int64("ms", elapsed).Msg("interval flushed")
	return nil
}

func (a *Accountant) upsertFaviconLocked(ctx context.Context, domain, faviconURL string) error {
	rec, err := a.store.Get(ctx, domain)
	if err != nil {
		a.metrics.IncrementStoreErrors()
		return fmt.Errorf("load %s: %w", domain, err)
	}
	if rec.FaviconURL == faviconURL {
		return nil
	}

	rec.FaviconURL = faviconURL
	if err := a.store.Set(ctx, rec); err != nil {
		a.metrics.IncrementStoreErrors()
		return fmt.Errorf("save favicon for %s: %w", domain, err)
	}
	return nil
}
