package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the page is not cached or its entry expired.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a stored page failed validation. Such
	// entries are removed when read.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// scanBatch is the COUNT hint used when scanning for listing keys.
const scanBatch = 200

// Manager stores fetched pages in Redis, keyed per account, resource, page
// and query shape.
type Manager struct {
	redis *redis.Client
}

// NewManager creates a page cache backed by redisClient.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{redis: redisClient}
}

// Get returns the cached page for key. It returns ErrCacheMiss when nothing
// usable is stored and ErrInvalidEntry, after deleting the entry, when the
// stored page does not match key.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	resource := key.Resource

	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.WithLabelValues(resource).Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		m.drop(ctx, key)
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.WithLabelValues(resource).Inc()
		return nil, ErrCacheMiss
	}

	if err := entry.Validate(key); err != nil {
		m.drop(ctx, key)
		return nil, err
	}

	CacheHits.WithLabelValues(resource).Inc()
	return &entry, nil
}

// drop removes an entry that failed decoding or validation.
func (m *Manager) drop(ctx context.Context, key CacheKey) {
	CacheErrors.WithLabelValues("validate").Inc()
	_ = m.Delete(ctx, key)
}

// Set stores a page until its entry expires. Empty pages and already
// expired entries are skipped without error.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	if entry.Records <= 0 {
		return nil
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheBytesWritten.WithLabelValues(key.Resource).Add(float64(len(data)))
	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Invalidate removes every cached page of one account's resource listing,
// whatever page size or field selection it was fetched with. It returns the
// number of pages removed.
func (m *Manager) Invalidate(ctx context.Context, account, resource string) (int, error) {
	var keys []string
	iter := m.redis.Scan(ctx, 0, ListingPattern(account, resource), scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("invalidate").Inc()
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := m.redis.Del(ctx, keys...).Result()
	if err != nil {
		CacheErrors.WithLabelValues("invalidate").Inc()
		return 0, fmt.Errorf("redis del: %w", err)
	}
	return int(n), nil
}

// Ping checks the Redis connection.
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
