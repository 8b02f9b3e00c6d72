package cache

import (
	"errors"
	"testing"
	"time"
)

func TestCacheEntry_IsExpired(t *testing.T) {
	tests := []struct {
		name     string
		expires  time.Time
		expected bool
	}{
		{"future", time.Now().Add(time.Minute), false},
		{"past", time.Now().Add(-time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &CacheEntry{Expires: tt.expires}
			if got := e.IsExpired(); got != tt.expected {
				t.Errorf("IsExpired() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCacheEntry_TTL(t *testing.T) {
	e := &CacheEntry{Expires: time.Now().Add(-time.Second)}
	if e.TTL() != 0 {
		t.Errorf("TTL() of expired entry = %v, want 0", e.TTL())
	}

	e = NewEntry(3, []byte(`[{"id":1}]`), 1, 10*time.Minute)
	if ttl := e.TTL(); ttl <= 9*time.Minute || ttl > 10*time.Minute {
		t.Errorf("TTL() = %v, want about 10m", ttl)
	}
	if e.Page != 3 || e.Records != 1 || e.CachedAt.IsZero() {
		t.Errorf("NewEntry() = %+v", e)
	}
}

func TestCacheEntry_Validate(t *testing.T) {
	key := CacheKey{Account: "ARL", Resource: "SalesOrders", Page: 2, Rows: 250}

	tests := []struct {
		name    string
		entry   CacheEntry
		wantErr bool
	}{
		{"valid", CacheEntry{Page: 2, Data: []byte(`[{"id":1},{"id":2}]`), Records: 2}, false},
		{"wrong page", CacheEntry{Page: 1, Data: []byte(`[{"id":1}]`), Records: 1}, true},
		{"empty page", CacheEntry{Page: 2, Data: []byte(`[]`), Records: 0}, true},
		{"count mismatch", CacheEntry{Page: 2, Data: []byte(`[{"id":1}]`), Records: 2}, true},
		{"not an array", CacheEntry{Page: 2, Data: []byte(`{"id":1}`), Records: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate(key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidEntry) {
				t.Errorf("Validate() error = %v, want ErrInvalidEntry", err)
			}
		})
	}
}
