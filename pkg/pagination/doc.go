// Package pagination fetches single pages of Cin7 list endpoints.
//
// Cin7 v1 list endpoints are paged with page and rows query parameters and
// return a JSON array per page; an empty array marks the end of the listing.
// There is no total page count, so callers walk pages strictly in order
// until an empty page (or a failure) is seen.
//
// Example usage:
//
//	fetcher := pagination.NewHTTPFetcher(apiClient, pagination.Query{
//		Resource: "SalesOrders",
//		Fields:   []string{"id", "reference", "lineItems"},
//	})
//	page := fetcher.Fetch(ctx, account, 1)
//	switch page.Outcome {
//	case pagination.OutcomeOK:
//		// process page.Records
//	case pagination.OutcomeEmpty:
//		// listing exhausted
//	case pagination.OutcomeTransportError:
//		// page.Err describes the failure; stop this account
//	}
//
// A fetcher can be given a Redis page cache with WithCache; cached pages are
// served without an API call and empty pages are never cached.
package pagination
