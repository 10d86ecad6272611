package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store. Records are copied on the way in and
// out so callers never share maps with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*DomainRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]*DomainRecord{}}
}

func (s *MemoryStore) Get(_ context.Context, domain string) (*DomainRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.records[domain]; ok {
		return rec.Clone(), nil
	}
	return NewDomainRecord(domain), nil
}

func (s *MemoryStore) Set(_ context.Context, record *DomainRecord) error {
	if record == nil || record.Domain == "" {
		return fmt.Errorf("set: record has no domain")
	}

	s.mu.Lock()
	s.records[record.Domain] = record.Clone()
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) All(_ context.Context) ([]DomainRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]DomainRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[domain]; !ok {
		return fmt.Errorf("domain %s: %w", domain, ErrNotFound)
	}
	delete(s.records, domain)
	return nil
}

func (s *MemoryStore) PurgeAll(_ context.Context) error {
	s.mu.Lock()
	s.records = map[string]*DomainRecord{}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
