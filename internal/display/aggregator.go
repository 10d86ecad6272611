// Package display turns stored totals plus the still-open interval into the
// ranked list shown to the user.
package display

import (
	"sort"
	"sync"
	"time"

	"github.com/runnerr0/sitetime/internal/clock"
	"github.com/runnerr0/sitetime/internal/period"
	"github.com/runnerr0/sitetime/internal/storage"
)

// Entry is one ranked row.
type Entry struct {
	Domain     string `json:"domain"`
	Millis     int64  `json:"ms"`
	FaviconURL string `json:"favicon_url,omitempty"`
}

// Aggregator computes snapshots for the selected period. It remembers when
// the active domain was last rendered so each render can add the time
// accrued since then, which the store only learns about at the next flush.
type Aggregator struct {
	mu         sync.Mutex
	clock      clock.Clock
	period     period.Period
	lastRender map[string]time.Time
}

// NewAggregator returns an Aggregator showing p. A nil clock uses the wall clock.
func NewAggregator(p period.Period, c clock.Clock) *Aggregator {
	if c == nil {
		c = clock.Real{}
	}
	return &Aggregator{
		clock:      c,
		period:     p,
		lastRender: map[string]time.Time{},
	}
}

// Period returns the selected period.
func (a *Aggregator) Period() period.Period {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.period
}

// SetPeriod selects p and forgets every last-render timestamp, so the
// first render after a switch adds no live delta.
func (a *Aggregator) SetPeriod(p period.Period) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.period = p
	a.lastRender = map[string]time.Time{}
}

// Snapshot ranks records by their total for the current period key,
// including the live delta for activeDomain. Entries with no time are
// dropped. Equal totals keep the order of records.
func (a *Aggregator) Snapshot(records []storage.DomainRecord, activeDomain string) []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	key := period.Key(a.period, now)

	entries := make([]Entry, 0, len(records))
	for i := range records {
		rec := &records[i]
		total := rec.Total(a.period, key)

		if activeDomain != "" && rec.Domain == activeDomain {
			if last, ok := a.lastRender[rec.Domain]; ok {
				total += now.Sub(last).Milliseconds()
			}
			a.lastRender[rec.Domain] = now
		}

		if total <= 0 {
			continue
		}
		entries = append(entries, Entry{
			Domain:     rec.Domain,
			Millis:     total,
			FaviconURL: rec.FaviconURL,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Millis > entries[j].Millis
	})
	return entries
}
