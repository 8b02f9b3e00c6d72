package cache

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// CacheKey identifies one fetched page of one account's resource listing.
type CacheKey struct {
	// Account is the tenant account name.
	Account string

	// Resource is the API collection, e.g. "SalesOrders".
	Resource string

	// Fields is the comma separated field selection sent with the request.
	Fields string

	// Page is the 1-based page number.
	Page int

	// Rows is the page size.
	Rows int
}

// ListingPattern returns the Redis MATCH pattern covering every cached page
// of one account's resource listing.
func ListingPattern(account, resource string) string {
	return "cin7:page:" + strings.Trim(resource, "/") + ":" + account + ":*"
}

// String generates a deterministic cache key string.
// Format: cin7:page:resource:account:page=N:rows=R:fields=<xxhash>
//
// Example:
//
//	cin7:page:SalesOrders:AlbertRogerUK:page=3:rows=250:fields=9a1f0c2e4b6d8f10
func (k CacheKey) String() string {
	parts := []string{"cin7", "page"}

	if r := strings.Trim(k.Resource, "/"); r != "" {
		parts = append(parts, r)
	}
	if k.Account != "" {
		parts = append(parts, k.Account)
	}

	parts = append(parts,
		fmt.Sprintf("page=%d", k.Page),
		fmt.Sprintf("rows=%d", k.Rows),
	)

	if k.Fields != "" {
		// Field lists are long; a digest keeps keys short and still distinct.
		parts = append(parts, fmt.Sprintf("fields=%016x", xxhash.Sum64String(k.Fields)))
	}

	return strings.Join(parts, ":")
}
