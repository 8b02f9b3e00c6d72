package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts pages served from the cache, per resource.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cin7_cache_hits_total",
			Help: "Total number of page cache hits",
		},
		[]string{"resource"},
	)

	// CacheMisses counts lookups that fell through to the API, per resource.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cin7_cache_misses_total",
			Help: "Total number of page cache misses",
		},
		[]string{"resource"},
	)

	// CacheBytesWritten counts encoded entry bytes stored in Redis.
	CacheBytesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cin7_cache_bytes_written_total",
			Help: "Total bytes of page data written to the cache",
		},
		[]string{"resource"},
	)

	// CacheErrors counts failed cache operations.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cin7_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // get, set, delete, validate, invalidate
	)
)
