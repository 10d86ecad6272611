package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces record keys.
const DefaultRedisPrefix = "sitetime:domain:"

// RedisStore implements Store with one JSON value per domain key, the same
// shape the browser extension keeps in its local storage.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisClient parses url and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewRedisStore wraps an already-connected client. An empty prefix uses
// DefaultRedisPrefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(domain string) string {
	return s.prefix + domain
}

func (s *RedisStore) Get(ctx context.Context, domain string) (*DomainRecord, error) {
	data, err := s.client.Get(ctx, s.key(domain)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return NewDomainRecord(domain), nil
		}
		return nil, fmt.Errorf("redis get %s: %w", domain, err)
	}

	rec := NewDomainRecord(domain)
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", domain, err)
	}
	return rec, nil
}

func (s *RedisStore) Set(ctx context.Context, record *DomainRecord) error {
	if record == nil || record.Domain == "" {
		return fmt.Errorf("set: record has no domain")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", record.Domain, err)
	}
	if err := s.client.Set(ctx, s.key(record.Domain), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", record.Domain, err)
	}
	return nil
}

func (s *RedisStore) All(ctx context.Context) ([]DomainRecord, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []DomainRecord{}, nil
	}
	sort.Strings(keys)

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	records := make([]DomainRecord, 0, len(keys))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Deleted between SCAN and MGET.
			continue
		}
		rec := NewDomainRecord(strings.TrimPrefix(keys[i], s.prefix))
		if err := json.Unmarshal([]byte(raw), rec); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", rec.Domain, err)
		}
		records = append(records, *rec)
	}
	return records, nil
}

func (s *RedisStore) Delete(ctx context.Context, domain string) error {
	n, err := s.client.Del(ctx, s.key(domain)).Result()
	if err != nil {
		return fmt.Errorf("redis del %s: %w", domain, err)
	}
	if n == 0 {
		return fmt.Errorf("domain %s: %w", domain, ErrNotFound)
	}
	return nil
}

func (s *RedisStore) PurgeAll(ctx context.Context) error {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis purge: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}
