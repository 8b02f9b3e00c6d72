// Package cache provides an optional Redis-backed cache of API pages.
//
// Reports are often re-run for overlapping date ranges within a short time
// (daily and weekly jobs over the same accounts). Caching the raw JSON of
// each page for a short TTL avoids spending per-account rate limit budget on
// pages that were fetched moments ago.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Account:  "AlbertRogerUK",
//		Resource: "SalesOrders",
//		Fields:   "id,reference,lineItems",
//		Page:     1,
//		Rows:     250,
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API, then
//		_ = manager.Set(ctx, key, cache.NewEntry(key.Page, body, n, 10*time.Minute))
//	}
//
// Empty pages are never cached: they mark the end of a listing and must be
// re-checked on every run. Entries are checked against their key on read and
// dropped when they do not match. Invalidate clears one account's listing.
//
// # Metrics
//
//   - cin7_cache_hits_total{resource}
//   - cin7_cache_misses_total{resource}
//   - cin7_cache_bytes_written_total{resource}
//   - cin7_cache_errors_total{operation}
package cache
