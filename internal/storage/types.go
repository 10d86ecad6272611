package storage

import (
	"encoding/json"
	"errors"

	"github.com/runnerr0/sitetime/internal/period"
)

// ErrNotFound is returned when deleting a domain that has no record.
var ErrNotFound = errors.New("record not found")

// DomainRecord holds the accumulated active-tab milliseconds for one domain.
type DomainRecord struct {
	Domain     string
	Daily      map[string]int64
	Weekly     map[string]int64
	Monthly    map[string]int64
	FaviconURL string
}

// NewDomainRecord returns an empty record for domain.
func NewDomainRecord(domain string) *DomainRecord {
	return &DomainRecord{
		Domain:  domain,
		Daily:   map[string]int64{},
		Weekly:  map[string]int64{},
		Monthly: map[string]int64{},
	}
}

// Add accrues ms into the day, week, and month buckets named by keys.
func (r *DomainRecord) Add(keys period.Keys, ms int64) {
	r.ensureMaps()
	r.Daily[keys.Day] += ms
	r.Weekly[keys.Week] += ms
	r.Monthly[keys.Month] += ms
}

// Buckets returns the mapping for p.
func (r *DomainRecord) Buckets(p period.Period) map[string]int64 {
	switch p {
	case period.Weekly:
		return r.Weekly
	case period.Monthly:
		return r.Monthly
	default:
		return r.Daily
	}
}

// Total returns the milliseconds stored under key for period p, or 0.
func (r *DomainRecord) Total(p period.Period, key string) int64 {
	return r.Buckets(p)[key]
}

// Empty reports whether the record holds no time and no icon, which is what
// Get returns for a domain that was never stored.
func (r *DomainRecord) Empty() bool {
	return len(r.Daily) == 0 && len(r.Weekly) == 0 && len(r.Monthly) == 0 && r.FaviconURL == ""
}

// Clone returns a deep copy.
func (r *DomainRecord) Clone() *DomainRecord {
	c := &DomainRecord{Domain: r.Domain, FaviconURL: r.FaviconURL}
	c.Daily = copyBuckets(r.Daily)
	c.Weekly = copyBuckets(r.Weekly)
	c.Monthly = copyBuckets(r.Monthly)
	return c
}

func (r *DomainRecord) ensureMaps() {
	if r.Daily == nil {
		r.Daily = map[string]int64{}
	}
	if r.Weekly == nil {
		r.Weekly = map[string]int64{}
	}
	if r.Monthly == nil {
		r.Monthly = map[string]int64{}
	}
}

func copyBuckets(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// recordJSON is the persisted per-domain shape. The domain itself is the
// key the value is stored under, so it is not part of the value.
type recordJSON struct {
	Daily      map[string]int64 `json:"daily"`
	Weekly     map[string]int64 `json:"weekly"`
	Monthly    map[string]int64 `json:"monthly"`
	FaviconURL *string          `json:"faviconUrl"`
}

// MarshalJSON encodes the record in its storage shape, with a null
// faviconUrl when none has been seen.
func (r DomainRecord) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		Daily:   nonNil(r.Daily),
		Weekly:  nonNil(r.Weekly),
		Monthly: nonNil(r.Monthly),
	}
	if r.FaviconURL != "" {
		fav := r.FaviconURL
		out.FaviconURL = &fav
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the storage shape. Domain is left untouched.
func (r *DomainRecord) UnmarshalJSON(data []byte) error {
	var in recordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.Daily = in.Daily
	r.Weekly = in.Weekly
	r.Monthly = in.Monthly
	r.FaviconURL = ""
	if in.FaviconURL != nil {
		r.FaviconURL = *in.FaviconURL
	}
	r.ensureMaps()
	return nil
}

func nonNil(m map[string]int64) map[string]int64 {
	if m == nil {
		return map[string]int64{}
	}
	return m
}
