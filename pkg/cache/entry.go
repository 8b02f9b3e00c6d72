package cache

import (
	"encoding/json"
	"fmt"
	"time"
)

// CacheEntry is one cached, non-empty API page.
type CacheEntry struct {
	// Page is the page number the body was fetched for.
	Page int `json:"page"`

	// Data is the raw JSON array returned for the page.
	Data []byte `json:"data"`

	// Records is the number of elements in Data.
	Records int `json:"records"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`

	// CachedAt is when the page was stored.
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry creates an entry for a page body holding records elements that
// expires after ttl.
func NewEntry(page int, data []byte, records int, ttl time.Duration) *CacheEntry {
	now := time.Now()
	return &CacheEntry{
		Page:     page,
		Data:     data,
		Records:  records,
		Expires:  now.Add(ttl),
		CachedAt: now,
	}
}

// IsExpired returns true if the cache entry has expired.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *CacheEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Age returns how long ago the page was fetched.
func (e *CacheEntry) Age() time.Duration {
	return time.Since(e.CachedAt)
}

// Validate checks that the entry belongs to key and that Data is a JSON
// array of exactly Records elements. An empty page is never a valid entry:
// it ends the listing and must always come from the API.
func (e *CacheEntry) Validate(key CacheKey) error {
	if e.Page != key.Page {
		return fmt.Errorf("%w: page %d stored under page %d", ErrInvalidEntry, e.Page, key.Page)
	}
	if e.Records <= 0 {
		return fmt.Errorf("%w: empty page", ErrInvalidEntry)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(e.Data, &items); err != nil {
		return fmt.Errorf("%w: body is not a JSON array: %v", ErrInvalidEntry, err)
	}
	if len(items) != e.Records {
		return fmt.Errorf("%w: %d records, header says %d", ErrInvalidEntry, len(items), e.Records)
	}
	return nil
}
